// internal/api/error_codes.go
package api

// API错误代码常量
const (
	// 通用错误
	ErrorBadRequest    = "BAD_REQUEST"
	ErrorNotFound      = "NOT_FOUND"
	ErrorInternalError = "INTERNAL_ERROR"
	ErrorConflict      = "CONFLICT"

	// 情景相关错误
	ErrorSceneNotFound     = "SCENE_NOT_FOUND"
	ErrorSceneCreateFailed = "SCENE_CREATE_FAILED"
	ErrorSceneInvalid      = "SCENE_INVALID"

	// 角色相关错误
	ErrorCharacterNotFound = "CHARACTER_NOT_FOUND"
	ErrorCharacterInvalid  = "CHARACTER_INVALID"

	// 上下文组装相关错误
	ErrorScopeViolation     = "SCOPE_VIOLATION"
	ErrorStoreFailure       = "STORE_FAILURE"
	ErrorContextBuildFailed = "CONTEXT_BUILD_FAILED"

	// 对话相关错误
	ErrorConversationInvalid  = "CONVERSATION_INVALID"
	ErrorConversationNotFound = "CONVERSATION_NOT_FOUND"
)
