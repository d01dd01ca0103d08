package specialists

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/remedy/pkg/contenthash"
	"github.com/entrhq/remedy/pkg/types"
)

// stubOracle returns a canned instruction or error.
type stubOracle struct {
	instruction types.FixInstruction
	err         error
	calls       int
}

func (s *stubOracle) ProposeFix(ctx context.Context, v types.Violation, pc types.PageContext) (types.FixInstruction, error) {
	s.calls++
	return s.instruction, s.err
}

func TestImageAltSpecialist_CanHandle(t *testing.T) {
	s := NewImageAltSpecialist(&stubOracle{})

	assert.True(t, s.CanHandle(types.Violation{RuleID: "image-alt"}))
	assert.True(t, s.CanHandle(types.Violation{RuleID: "input-image-alt"}))
	assert.True(t, s.CanHandle(types.Violation{RuleID: "role-img-alt"}))
	assert.False(t, s.CanHandle(types.Violation{RuleID: "color-contrast"}))
	assert.False(t, s.CanHandle(types.Violation{RuleID: "link-name"}))
}

func TestImageAltSpecialist_PlanFix(t *testing.T) {
	o := &stubOracle{instruction: types.FixInstruction{
		Type:        types.FixAttribute,
		Selector:    "img.logo",
		ViolationID: "v1",
		Attribute:   &types.AttributeParams{Name: "alt", Value: "Company logo"},
	}}
	s := NewImageAltSpecialist(o)

	violation := types.Violation{ID: "v1", RuleID: "image-alt", Selector: "img.logo"}
	instruction, err := s.PlanFix(context.Background(), violation, types.PageContext{})
	require.NoError(t, err)

	assert.Equal(t, types.FixAttribute, instruction.Type)
	assert.Equal(t, "Company logo", instruction.Attribute.Value)
	assert.Equal(t, 1, o.calls)
}

func TestImageAltSpecialist_RejectsWrongFixType(t *testing.T) {
	o := &stubOracle{instruction: types.FixInstruction{
		Type:     types.FixStyle,
		Selector: "img.logo",
		Style:    &types.StyleParams{Property: "display", Value: "none"},
	}}
	s := NewImageAltSpecialist(o)

	_, err := s.PlanFix(context.Background(), types.Violation{ID: "v1", RuleID: "image-alt"}, types.PageContext{})

	var planning *FixPlanningError
	require.ErrorAs(t, err, &planning)
	assert.Equal(t, "v1", planning.ViolationID)
}

func TestImageAltSpecialist_OracleFailure(t *testing.T) {
	oracleErr := errors.New("oracle timeout")
	s := NewImageAltSpecialist(&stubOracle{err: oracleErr})

	_, err := s.PlanFix(context.Background(), types.Violation{ID: "v1", RuleID: "image-alt"}, types.PageContext{})

	var planning *FixPlanningError
	require.ErrorAs(t, err, &planning)
	assert.ErrorIs(t, err, oracleErr)
}

func TestTextContentSpecialist_CanHandle(t *testing.T) {
	s := NewTextContentSpecialist(&stubOracle{})

	assert.True(t, s.CanHandle(types.Violation{RuleID: "link-name"}))
	assert.True(t, s.CanHandle(types.Violation{RuleID: "button-name"}))
	assert.True(t, s.CanHandle(types.Violation{RuleID: "empty-heading"}))
	assert.False(t, s.CanHandle(types.Violation{RuleID: "image-alt"}))
}

func TestTextContentSpecialist_StampsPlanTimeHash(t *testing.T) {
	o := &stubOracle{instruction: types.FixInstruction{
		Type:        types.FixContent,
		Selector:    "a.more",
		ViolationID: "v1",
		Content:     &types.ContentParams{InnerText: "Read more about pricing"},
	}}
	s := NewTextContentSpecialist(o)

	violation := types.Violation{
		ID:       "v1",
		RuleID:   "link-name",
		Selector: "a.more",
		HTML:     `<a class="more" href="/pricing">click here</a>`,
	}

	instruction, err := s.PlanFix(context.Background(), violation, types.PageContext{})
	require.NoError(t, err)

	assert.Equal(t, contenthash.Hash("click here"), instruction.Content.OriginalTextHash)
	assert.True(t, contenthash.IsDigest(instruction.Content.OriginalTextHash))
}

func TestTextContentSpecialist_OverridesOracleClaimedHash(t *testing.T) {
	o := &stubOracle{instruction: types.FixInstruction{
		Type:        types.FixContent,
		Selector:    "a.more",
		ViolationID: "v1",
		Content: &types.ContentParams{
			InnerText:        "Read more",
			OriginalTextHash: "0000000000000000000000000000000000000000000000000000000000000000",
		},
	}}
	s := NewTextContentSpecialist(o)

	violation := types.Violation{ID: "v1", RuleID: "link-name", HTML: `<a>click here</a>`}
	instruction, err := s.PlanFix(context.Background(), violation, types.PageContext{})
	require.NoError(t, err)

	assert.Equal(t, contenthash.Hash("click here"), instruction.Content.OriginalTextHash)
}

func TestContrastSpecialist_CanHandle(t *testing.T) {
	s := NewContrastSpecialist(&stubOracle{})

	assert.True(t, s.CanHandle(types.Violation{RuleID: "color-contrast"}))
	assert.True(t, s.CanHandle(types.Violation{RuleID: "color-contrast-enhanced"}))
	assert.True(t, s.CanHandle(types.Violation{RuleID: "link-in-text-block"}))
	assert.False(t, s.CanHandle(types.Violation{RuleID: "button-name"}))
}

func TestContrastSpecialist_PlanFix(t *testing.T) {
	o := &stubOracle{instruction: types.FixInstruction{
		Type:        types.FixStyle,
		Selector:    "p.muted",
		ViolationID: "v1",
		Style:       &types.StyleParams{Property: "color", Value: "#1a1a1a"},
	}}
	s := NewContrastSpecialist(o)

	instruction, err := s.PlanFix(context.Background(), types.Violation{ID: "v1", RuleID: "color-contrast"}, types.PageContext{})
	require.NoError(t, err)
	assert.Equal(t, "#1a1a1a", instruction.Style.Value)
}

func TestDefaultRegistry_RoutesByRule(t *testing.T) {
	o := &stubOracle{err: errors.New("not exercised")}
	registry := NewDefaultRegistry(o)

	tests := []struct {
		ruleID string
		want   string
	}{
		{"image-alt", "image-alt"},
		{"link-name", "text-content"},
		{"color-contrast", "contrast"},
	}

	for _, tt := range tests {
		s, ok := registry.Match(types.Violation{RuleID: tt.ruleID})
		require.True(t, ok, "rule %s", tt.ruleID)
		assert.Equal(t, tt.want, s.Name())
	}

	_, ok := registry.Match(types.Violation{RuleID: "html-has-lang"})
	assert.False(t, ok)
}
