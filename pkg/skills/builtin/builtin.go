// Package builtin holds the free skills compiled into every build.
package builtin

import (
	"context"

	"github.com/platinummonkey/skillgate/pkg/features"
	"github.com/platinummonkey/skillgate/pkg/skills"
)

const (
	PIASkillID    = "com.privacy.pia"
	CustomSkillID = "com.privacy.custom"
)

// Skills returns fresh copies of the built-in skills
func Skills() []*skills.Skill {
	return []*skills.Skill{PIA(), Custom()}
}

// PIA is the privacy impact assessment skill
func PIA() *skills.Skill {
	return &skills.Skill{
		ID:          PIASkillID,
		Name:        features.DisplayName(features.PIA),
		Version:     "1.0.0",
		Description: "Screening questionnaire for new processing activities",
		FeatureType: features.PIA,
		Extensions: map[skills.ExtensionPoint]skills.ExtensionHandler{
			skills.ExtensionNewItemForm: formHandler(PIASkillID, []string{"overview", "data_inventory", "risks"}),
			skills.ExtensionExport:      exportHandler(PIASkillID, "pdf", "csv"),
		},
		Templates: []skills.Template{
			{ID: "pia-basic", Name: "Basic PIA", Description: "Short screening for low risk projects"},
			{ID: "pia-full", Name: "Full PIA", Description: "Complete assessment including mitigation plan"},
		},
	}
}

// Custom is the free-form assessment skill
func Custom() *skills.Skill {
	return &skills.Skill{
		ID:          CustomSkillID,
		Name:        features.DisplayName(features.Custom),
		Version:     "1.0.0",
		Description: "Assessment built from a user supplied question set",
		FeatureType: features.Custom,
		Extensions: map[skills.ExtensionPoint]skills.ExtensionHandler{
			skills.ExtensionNewItemForm: formHandler(CustomSkillID, []string{"questions"}),
		},
		Templates: []skills.Template{
			{ID: "custom-blank", Name: "Blank"},
		},
	}
}

func formHandler(skillID string, sections []string) skills.ExtensionHandler {
	return skills.HandlerFunc(func(ctx context.Context, req *skills.ExtensionRequest) (*skills.ExtensionResponse, error) {
		return &skills.ExtensionResponse{
			SkillID: skillID,
			Kind:    "form",
			Data:    map[string]interface{}{"sections": sections},
		}, nil
	})
}

func exportHandler(skillID string, formats ...string) skills.ExtensionHandler {
	return skills.HandlerFunc(func(ctx context.Context, req *skills.ExtensionRequest) (*skills.ExtensionResponse, error) {
		return &skills.ExtensionResponse{
			SkillID: skillID,
			Kind:    "export",
			Data:    map[string]interface{}{"formats": formats, "item_id": req.ItemID},
		}, nil
	})
}
