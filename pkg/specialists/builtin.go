package specialists

import (
	"context"
	"fmt"

	"github.com/entrhq/remedy/pkg/contenthash"
	"github.com/entrhq/remedy/pkg/domutil"
	"github.com/entrhq/remedy/pkg/oracle"
	"github.com/entrhq/remedy/pkg/types"
)

// oracleSpecialist is the common shape of the built-in specialists: a name,
// a fixed pattern set, the oracle to consult, and the fix type the
// specialist is willing to accept from it.
type oracleSpecialist struct {
	name     string
	patterns rulePatterns
	oracle   oracle.Oracle
	wantType types.FixType
}

func (s *oracleSpecialist) Name() string {
	return s.name
}

func (s *oracleSpecialist) CanHandle(violation types.Violation) bool {
	return s.patterns.match(violation.RuleID)
}

// planViaOracle asks the oracle for a fix and rejects any instruction whose
// type the specialist does not produce. The oracle is untrusted; a
// mismatched type means the response could not be coerced into a valid
// instruction for this rule family.
func (s *oracleSpecialist) planViaOracle(ctx context.Context, violation types.Violation, pageCtx types.PageContext) (types.FixInstruction, error) {
	instruction, err := s.oracle.ProposeFix(ctx, violation, pageCtx)
	if err != nil {
		return types.FixInstruction{}, &FixPlanningError{
			ViolationID: violation.ID,
			Specialist:  s.name,
			Err:         err,
		}
	}
	if instruction.Type != s.wantType {
		return types.FixInstruction{}, &FixPlanningError{
			ViolationID: violation.ID,
			Specialist:  s.name,
			Err:         fmt.Errorf("oracle proposed a %s fix, expected %s", instruction.Type, s.wantType),
		}
	}
	return instruction, nil
}

// ImageAltSpecialist plans attribute fixes for missing or unusable image
// alternate text.
type ImageAltSpecialist struct {
	oracleSpecialist
}

// NewImageAltSpecialist wires the image-alt specialist to an oracle.
func NewImageAltSpecialist(o oracle.Oracle) *ImageAltSpecialist {
	return &ImageAltSpecialist{oracleSpecialist{
		name:     "image-alt",
		patterns: compilePatterns("image-alt", "input-image-alt", "area-alt", "role-img-alt"),
		oracle:   o,
		wantType: types.FixAttribute,
	}}
}

// PlanFix asks the oracle to describe the image and returns an attribute
// fix setting its alt text.
func (s *ImageAltSpecialist) PlanFix(ctx context.Context, violation types.Violation, pageCtx types.PageContext) (types.FixInstruction, error) {
	instruction, err := s.planViaOracle(ctx, violation, pageCtx)
	if err != nil {
		return types.FixInstruction{}, err
	}
	if instruction.Attribute == nil || instruction.Attribute.Name == "" {
		return types.FixInstruction{}, &FixPlanningError{
			ViolationID: violation.ID,
			Specialist:  s.name,
			Err:         fmt.Errorf("oracle returned attribute fix without an attribute name"),
		}
	}
	return instruction, nil
}

// TextContentSpecialist plans content fixes for elements whose rendered
// text fails a rule, such as nameless links and buttons.
type TextContentSpecialist struct {
	oracleSpecialist
}

// NewTextContentSpecialist wires the text-content specialist to an oracle.
func NewTextContentSpecialist(o oracle.Oracle) *TextContentSpecialist {
	return &TextContentSpecialist{oracleSpecialist{
		name:     "text-content",
		patterns: compilePatterns("link-name", "button-name", "empty-heading", "label"),
		oracle:   o,
		wantType: types.FixContent,
	}}
}

// PlanFix asks the oracle for replacement text and stamps the instruction
// with the hash of the element's plan-time text, taken from the scanner's
// HTML snapshot. The hash captured here is what the integrity guard
// compares against at apply time; whatever hash the oracle claimed is
// discarded.
func (s *TextContentSpecialist) PlanFix(ctx context.Context, violation types.Violation, pageCtx types.PageContext) (types.FixInstruction, error) {
	instruction, err := s.planViaOracle(ctx, violation, pageCtx)
	if err != nil {
		return types.FixInstruction{}, err
	}
	if instruction.Content == nil {
		return types.FixInstruction{}, &FixPlanningError{
			ViolationID: violation.ID,
			Specialist:  s.name,
			Err:         fmt.Errorf("oracle returned content fix without content params"),
		}
	}
	instruction.Content.OriginalTextHash = contenthash.Hash(domutil.InnerText(violation.HTML))
	return instruction, nil
}

// ContrastSpecialist plans style fixes for insufficient color contrast.
type ContrastSpecialist struct {
	oracleSpecialist
}

// NewContrastSpecialist wires the contrast specialist to an oracle.
func NewContrastSpecialist(o oracle.Oracle) *ContrastSpecialist {
	return &ContrastSpecialist{oracleSpecialist{
		name:     "contrast",
		patterns: compilePatterns("color-contrast", "color-contrast-*", "link-in-text-block"),
		oracle:   o,
		wantType: types.FixStyle,
	}}
}

// PlanFix asks the oracle for a replacement color declaration.
func (s *ContrastSpecialist) PlanFix(ctx context.Context, violation types.Violation, pageCtx types.PageContext) (types.FixInstruction, error) {
	instruction, err := s.planViaOracle(ctx, violation, pageCtx)
	if err != nil {
		return types.FixInstruction{}, err
	}
	if instruction.Style == nil || instruction.Style.Property == "" {
		return types.FixInstruction{}, &FixPlanningError{
			ViolationID: violation.ID,
			Specialist:  s.name,
			Err:         fmt.Errorf("oracle returned style fix without a property"),
		}
	}
	return instruction, nil
}
