package builtin

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/skillgate/pkg/features"
	"github.com/platinummonkey/skillgate/pkg/skills"
)

func TestSkillsAreFree(t *testing.T) {
	for _, s := range Skills() {
		assert.False(t, s.Premium, s.ID)
		assert.True(t, features.IsFree(s.FeatureType), s.ID)
		assert.NotEmpty(t, s.Templates, s.ID)
	}
}

func TestRegisterBuiltins(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	registry := skills.NewRegistry(log)
	loader := skills.NewLoader(registry, nil, log)

	ids, err := loader.RegisterStatic(context.Background(), Skills()...)
	require.NoError(t, err)
	assert.Equal(t, []string{PIASkillID, CustomSkillID}, ids)

	handler := registry.ResolveExtension(features.PIA, skills.ExtensionExport)
	resp, err := handler.Handle(context.Background(), &skills.ExtensionRequest{ItemID: "a-1"})
	require.NoError(t, err)
	assert.Equal(t, PIASkillID, resp.SkillID)
	assert.Equal(t, "a-1", resp.Data["item_id"])

	handler = registry.ResolveExtension(features.Custom, skills.ExtensionExport)
	resp, err = handler.Handle(context.Background(), &skills.ExtensionRequest{FeatureType: features.Custom, Point: skills.ExtensionExport})
	require.NoError(t, err)
	assert.Equal(t, "generic", resp.Kind)
}
