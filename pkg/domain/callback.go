package domain

// Inline keyboard callback data prefixes.
const (
	SetModelCallbackPrefix   = "setmodel_"
	ChatInfoCallbackPrefix   = "chatinfo_"
	ChatPageCallbackPrefix   = "chatpage_"
	DeleteChatCallbackPrefix = "deletechat_"
	LoadChatCallbackPrefix   = "loadchat_"
	NoopCallback             = "donothing"
)
