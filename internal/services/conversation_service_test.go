// internal/services/conversation_service_test.go
package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Corphon/SceneWeaverMCP/internal/errors"
	"github.com/Corphon/SceneWeaverMCP/internal/models"
)

func TestAppendTurnValidation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.conversation.AppendTurn(context.Background(), models.ConversationTurn{
		SceneID: "S1", SenderID: "a", Role: "system", Message: "x",
	})
	assert.True(t, apperrors.IsValidationError(err))

	_, err = env.conversation.AppendTurn(context.Background(), models.ConversationTurn{
		SenderID: "a", Role: models.RoleUser, Message: "x",
	})
	assert.True(t, apperrors.IsValidationError(err))
}

func TestAppendTurnScopeViolation(t *testing.T) {
	env := newTestEnv(t)
	env.addScene(t, "S1", true)
	env.addCharacter(t, "a", "Alice", "", true)

	// 角色存在但未绑定在情景中，发言越权
	_, err := env.conversation.AppendTurn(context.Background(), models.ConversationTurn{
		SceneID: "S1", SenderID: "a", Role: models.RoleUser, Message: "x",
	})
	assert.True(t, apperrors.IsScopeViolationError(err))
}

func TestAppendAndPatchTurn(t *testing.T) {
	env := newTestEnv(t)
	env.addScene(t, "S1", true)
	env.addCharacter(t, "a", "Alice", "", true)
	env.bind(t, "a", "S1", 0, true)

	svc := env.conversation
	created, err := svc.AppendTurn(context.Background(), models.ConversationTurn{
		SceneID: "S1", SenderID: "a", Role: models.RoleAssistant, Message: "",
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	// 流式输出结束后补写最终文本
	patched, err := svc.PatchTurn(context.Background(), created.ID, "final text")
	require.NoError(t, err)
	assert.Equal(t, "final text", patched.Message)

	turns, err := svc.TurnsForScene(context.Background(), "S1")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "final text", turns[0].Message)
}

func TestPatchUnknownTurn(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.conversation.PatchTurn(context.Background(), "missing", "x")
	assert.True(t, apperrors.IsNotFoundError(err))
}
