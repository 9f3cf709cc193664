// internal/services/visibility_service_test.go
package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsCharacterInSceneIgnoresVisibility(t *testing.T) {
	env := newTestEnv(t)
	env.addScene(t, "S1", true)
	env.addCharacter(t, "ghost", "Ghost", "a hidden watcher", true)
	env.bind(t, "ghost", "S1", 0, false)

	// 在场判断只看绑定是否存在，不看可见性开关
	inScene, err := env.visibility.IsCharacterInScene(context.Background(), "ghost", "S1")
	require.NoError(t, err)
	assert.True(t, inScene)

	inScene, err = env.visibility.IsCharacterInScene(context.Background(), "ghost", "S2")
	require.NoError(t, err)
	assert.False(t, inScene)
}

func TestBindingsForSceneOrdering(t *testing.T) {
	env := newTestEnv(t)
	env.addScene(t, "S1", true)
	for _, c := range []struct {
		id        string
		sortOrder int
	}{
		{"c3", 2},
		{"c1", 0},
		{"c2", 0}, // 与 c1 同序，写入顺序在后
		{"c4", 1},
	} {
		env.addCharacter(t, c.id, c.id, "", true)
		env.bind(t, c.id, "S1", c.sortOrder, true)
	}

	bindings, err := env.visibility.BindingsForScene(context.Background(), "S1", false)
	require.NoError(t, err)

	got := make([]string, len(bindings))
	for i, binding := range bindings {
		got[i] = binding.CharacterID
	}
	// sort_order 升序，相同时保持写入顺序
	assert.Equal(t, []string{"c1", "c2", "c4", "c3"}, got)
}

func TestBindingsForSceneVisibilityFilter(t *testing.T) {
	env := newTestEnv(t)
	env.addScene(t, "S1", true)
	env.addCharacter(t, "shown", "Shown", "", true)
	env.addCharacter(t, "hidden", "Hidden", "", true)
	env.bind(t, "shown", "S1", 0, true)
	env.bind(t, "hidden", "S1", 1, false)

	bindings, err := env.visibility.BindingsForScene(context.Background(), "S1", false)
	require.NoError(t, err)
	require.Len(t, bindings, 1)
	assert.Equal(t, "shown", bindings[0].CharacterID)

	bindings, err = env.visibility.BindingsForScene(context.Background(), "S1", true)
	require.NoError(t, err)
	assert.Len(t, bindings, 2)
}

func TestMostRecentAppearancePicksNewestScene(t *testing.T) {
	env := newTestEnv(t)
	for _, sid := range []string{"S1", "S2", "S3"} {
		env.addScene(t, sid, sid == "S1")
	}
	env.addCharacter(t, "k", "K", "", true)
	env.bind(t, "k", "S1", 0, true)
	env.bind(t, "k", "S2", 0, true)

	// 链从最新到最旧排列，角色不在 S3，最近一次出现应是 S2
	binding, err := env.visibility.MostRecentAppearance(context.Background(), "k",
		[]string{"S3", "S2", "S1"}, false)
	require.NoError(t, err)
	require.NotNil(t, binding)
	assert.Equal(t, "S2", binding.SceneID)
}

func TestMostRecentAppearanceAbsent(t *testing.T) {
	env := newTestEnv(t)
	env.addScene(t, "S1", true)
	env.addCharacter(t, "k", "K", "", true)

	binding, err := env.visibility.MostRecentAppearance(context.Background(), "k",
		[]string{"S1"}, false)
	require.NoError(t, err)
	assert.Nil(t, binding)
}

func TestMostRecentAppearanceInvisibleBinding(t *testing.T) {
	env := newTestEnv(t)
	env.addScene(t, "S1", true)
	env.addCharacter(t, "k", "K", "", true)
	env.bind(t, "k", "S1", 0, false)

	// 不可见绑定默认不算出现过
	binding, err := env.visibility.MostRecentAppearance(context.Background(), "k",
		[]string{"S1"}, false)
	require.NoError(t, err)
	assert.Nil(t, binding)

	binding, err = env.visibility.MostRecentAppearance(context.Background(), "k",
		[]string{"S1"}, true)
	require.NoError(t, err)
	assert.NotNil(t, binding)
}
