package eino

import (
	"sync"

	einocb "github.com/cloudwego/eino/callbacks"
	cbtemplate "github.com/cloudwego/eino/utils/callbacks"
)

var registerOnce sync.Once

// NewHandler 仅处理 ChatModel 组件的回调
func NewHandler() einocb.Handler {
	return cbtemplate.NewHandlerHelper().
		ChatModel(newChatModelCallbackHandler()).
		Handler()
}

// Init 注册为全局回调，重复调用无副作用
// 须在首次模型调用前执行，api 与 worker 进程启动时各调用一次
func Init() {
	registerOnce.Do(func() {
		einocb.AppendGlobalHandlers(NewHandler())
	})
}
