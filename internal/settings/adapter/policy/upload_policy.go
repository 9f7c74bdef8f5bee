package policy

import (
	"fmt"

	"product-studio/internal/settings/domain/model"
	"product-studio/internal/settings/domain/repository"

	"github.com/google/cel-go/cel"
)

// AllowAll is the default upload policy expression
const AllowAll = "true"

// UploadPolicy decides whether an uploaded file is accepted.
// Expressions are CEL over the variables name, mime and size, e.g.
//
//	mime in ['model/gltf-binary', 'model/gltf+json'] || name.endsWith('.glb')
type UploadPolicy struct {
	expression string
	program    cel.Program
}

var _ repository.UploadPolicy = (*UploadPolicy)(nil)

// NewUploadPolicy compiles expression; an empty expression allows everything
func NewUploadPolicy(expression string) (*UploadPolicy, error) {
	if expression == "" {
		expression = AllowAll
	}

	env, err := cel.NewEnv(
		cel.Variable("name", cel.StringType),
		cel.Variable("mime", cel.StringType),
		cel.Variable("size", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL compilation error: %w", issues.Err())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return &UploadPolicy{expression: expression, program: program}, nil
}

// Expression returns the source of the compiled policy
func (p *UploadPolicy) Expression() string {
	return p.expression
}

// Allows evaluates the policy against a candidate file
func (p *UploadPolicy) Allows(candidate model.UploadCandidate) (bool, error) {
	out, _, err := p.program.Eval(map[string]interface{}{
		"name": candidate.Name,
		"mime": candidate.MimeType,
		"size": candidate.Size,
	})
	if err != nil {
		return false, fmt.Errorf("CEL evaluation error: %w", err)
	}

	allowed, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("upload policy %q did not return a boolean", p.expression)
	}
	return allowed, nil
}
