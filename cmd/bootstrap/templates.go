package main

import "ebook-ai-api/internal/domain/entity"

func defaultTemplates() []*entity.Template {
	return []*entity.Template{
		{
			Name:        "Beginner's Guide",
			Category:    "education",
			Description: "Step-by-step introduction to a topic for newcomers",
			Structure: entity.TemplateStructure{Chapters: []string{
				"Introduction",
				"Core Concepts",
				"Getting Started",
				"Common Mistakes",
				"Next Steps",
			}},
		},
		{
			Name:        "How-To Handbook",
			Category:    "business",
			Description: "Practical handbook built around actionable chapters",
			Structure: entity.TemplateStructure{Chapters: []string{
				"Why This Matters",
				"Preparing the Ground",
				"The Method",
				"Case Studies",
				"Measuring Results",
				"Conclusion",
			}},
		},
		{
			Name:        "Short Story Collection",
			Category:    "fiction",
			Description: "Independent stories sharing a common theme",
			Structure: entity.TemplateStructure{Chapters: []string{
				"Opening Story",
				"The Turning Point",
				"Interlude",
				"The Long Night",
				"Closing Story",
			}},
		},
		{
			Name:        "Executive Playbook",
			Category:    "business",
			Description: "In-depth strategic guide with frameworks and checklists",
			IsPremium:   true,
			Structure: entity.TemplateStructure{Chapters: []string{
				"Executive Summary",
				"Market Landscape",
				"Strategic Frameworks",
				"Execution Roadmap",
				"Risk Management",
				"Metrics and Governance",
				"Appendix: Checklists",
			}},
		},
	}
}
