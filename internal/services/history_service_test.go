// internal/services/history_service_test.go
package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Corphon/SceneWeaverMCP/internal/models"
)

func TestPersonaPreambleEmptyScene(t *testing.T) {
	env := newTestEnv(t)
	env.addScene(t, "S1", true)

	preamble, err := env.history.PersonaPreamble(context.Background(), "S1")
	require.NoError(t, err)
	assert.Equal(t, "", preamble)
}

func TestPersonaPreambleJoinsPrompts(t *testing.T) {
	env := newTestEnv(t)
	env.addScene(t, "S1", true)
	env.addCharacter(t, "a", "Alice", "Alice is a knight.", true)
	env.addCharacter(t, "b", "Bob", "Bob is a bard.", true)
	env.bind(t, "a", "S1", 0, true)
	env.bind(t, "b", "S1", 1, true)

	preamble, err := env.history.PersonaPreamble(context.Background(), "S1")
	require.NoError(t, err)
	assert.Equal(t, "Alice is a knight.\n --- \nBob is a bard.\n --- \n", preamble)
}

func TestPersonaPreambleSkipsInvisibleCharacter(t *testing.T) {
	env := newTestEnv(t)
	env.addScene(t, "S1", true)
	// 绑定可见但角色级不可见，人设不注入
	env.addCharacter(t, "a", "Alice", "Alice is a knight.", false)
	env.bind(t, "a", "S1", 0, true)
	// 角色可见但绑定不可见，同样不注入
	env.addCharacter(t, "b", "Bob", "Bob is a bard.", true)
	env.bind(t, "b", "S1", 1, false)

	preamble, err := env.history.PersonaPreamble(context.Background(), "S1")
	require.NoError(t, err)
	assert.Equal(t, "", preamble)
}

func TestConversationTurnsScopeBoundary(t *testing.T) {
	env := newTestEnv(t)
	env.addScene(t, "S1", true)
	env.addCharacter(t, "a", "Alice", "", true)
	env.addCharacter(t, "outsider", "Outsider", "", true)
	env.bind(t, "a", "S1", 0, true)
	env.say(t, "S1", "a", models.RoleUser, "hello")

	// 不在情景中的角色拿到空列表，而不是错误
	turns, err := env.history.ConversationTurns(context.Background(), "S1", "outsider")
	require.NoError(t, err)
	assert.Empty(t, turns)

	turns, err = env.history.ConversationTurns(context.Background(), "S1", "a")
	require.NoError(t, err)
	assert.Len(t, turns, 1)
}

func TestConversationTurnsFiltersInvisibleSender(t *testing.T) {
	env := newTestEnv(t)
	env.addScene(t, "S1", true)
	env.addCharacter(t, "a", "Alice", "", true)
	env.addCharacter(t, "hidden", "Hidden", "", false)
	env.bind(t, "a", "S1", 0, true)
	env.bind(t, "hidden", "S1", 1, true)
	env.say(t, "S1", "a", models.RoleUser, "visible line")
	env.say(t, "S1", "hidden", models.RoleAssistant, "secret line")

	turns, err := env.history.ConversationTurns(context.Background(), "S1", "a")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "visible line", turns[0].Message)
}

func TestFullLineageHistoryChronologicalOrder(t *testing.T) {
	env := newTestEnv(t)
	env.addScene(t, "R", true)
	env.addScene(t, "S1", false, "R")
	env.addScene(t, "S2", false, "S1")
	env.addCharacter(t, "k", "K", "K the wanderer.", true)
	env.addCharacter(t, "n", "N", "N the narrator.", true)
	// K 绑定在 R 和 S2，跳过 S1
	env.bind(t, "k", "R", 0, true)
	env.bind(t, "k", "S2", 0, true)
	env.bind(t, "n", "R", 1, true)
	env.bind(t, "n", "S1", 0, true)
	env.bind(t, "n", "S2", 1, true)

	env.say(t, "R", "k", models.RoleUser, "from root")
	env.say(t, "S1", "n", models.RoleAssistant, "from middle")
	env.say(t, "S2", "n", models.RoleAssistant, "from tip")

	lineage := []models.Scene{
		{SID: "S2"}, {SID: "S1"}, {SID: "R", IsRoot: true},
	}
	preamble, history, err := env.history.FullLineageHistory(context.Background(), "S2", lineage, "k")
	require.NoError(t, err)

	// 前言只取当前情景自己的可见角色
	assert.Equal(t, "K the wanderer.\n --- \nN the narrator.\n --- \n", preamble)

	// K 不在 S1，中段对话整个被跳过；剩余对话按时间顺序排列
	require.Len(t, history, 2)
	assert.Equal(t, "from root", history[0].Message)
	assert.Equal(t, "from tip", history[1].Message)
}

func TestFullLineageHistoryActingCharacterOutsideCurrentScene(t *testing.T) {
	env := newTestEnv(t)
	env.addScene(t, "R", true)
	env.addScene(t, "S1", false, "R")
	env.addCharacter(t, "k", "K", "K the wanderer.", true)
	env.bind(t, "k", "R", 0, true)
	env.say(t, "R", "k", models.RoleUser, "from root")

	lineage := []models.Scene{{SID: "S1"}, {SID: "R", IsRoot: true}}

	// 扮演角色不在当前情景，链上的历史一概不可见
	preamble, history, err := env.history.FullLineageHistory(context.Background(), "S1", lineage, "k")
	require.NoError(t, err)
	assert.Equal(t, "", preamble)
	assert.Empty(t, history)
}

func TestFullLineageHistorySceneNotInLineage(t *testing.T) {
	env := newTestEnv(t)
	env.addScene(t, "R", true)

	preamble, history, err := env.history.FullLineageHistory(context.Background(), "elsewhere",
		[]models.Scene{{SID: "R", IsRoot: true}}, "k")
	require.NoError(t, err)
	assert.Equal(t, "", preamble)
	assert.Empty(t, history)
}
