package cipher

import (
	"context"
	"fmt"
)

// OperationType defines the category of an operation
type OperationType string

const (
	OperationTypeEncode  OperationType = "encode"
	OperationTypeDecode  OperationType = "decode"
	OperationTypeEncrypt OperationType = "encrypt"
	OperationTypeAnalyze OperationType = "analyze"
)

// Operation is a single byte transformation that can be chained in a pipeline
type Operation interface {
	// Name returns the unique identifier for this operation
	Name() string

	// Type returns the category of this operation
	Type() OperationType

	// Description returns a human-readable description
	Description() string

	// Execute applies the operation to the input data
	Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error)

	// Reverse returns the inverse operation if available
	Reverse() (Operation, bool)
}

// OperationConfig names an operation and its parameters inside a pipeline
type OperationConfig struct {
	Name       string                 `json:"name"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// Pipeline is a chain of operations applied in order
type Pipeline struct {
	Operations []OperationConfig `json:"operations"`
	Reversible bool              `json:"reversible"`
}

// Execute runs the pipeline on the input data
func (p *Pipeline) Execute(ctx context.Context, input []byte) ([]byte, error) {
	result := input
	var err error

	for i, opConfig := range p.Operations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		op, exists := GetOperation(opConfig.Name)
		if !exists {
			return nil, fmt.Errorf("unknown operation at step %d: %s", i, opConfig.Name)
		}

		result, err = op.Execute(ctx, result, opConfig.Parameters)
		if err != nil {
			return nil, fmt.Errorf("operation %s failed at step %d: %w", opConfig.Name, i, err)
		}
	}

	return result, nil
}

// Reverse builds the inverse pipeline. Steps run in reverse order and keep
// their parameters, so a keyed XOR step undoes itself.
func (p *Pipeline) Reverse() (*Pipeline, error) {
	if !p.Reversible {
		return nil, fmt.Errorf("pipeline is not reversible")
	}

	reversed := &Pipeline{
		Operations: make([]OperationConfig, len(p.Operations)),
		Reversible: true,
	}

	for i, opConfig := range p.Operations {
		op, exists := GetOperation(opConfig.Name)
		if !exists {
			return nil, fmt.Errorf("unknown operation: %s", opConfig.Name)
		}

		reverseOp, ok := op.Reverse()
		if !ok {
			return nil, fmt.Errorf("operation %s is not reversible", opConfig.Name)
		}

		reversed.Operations[len(p.Operations)-1-i] = OperationConfig{
			Name:       reverseOp.Name(),
			Parameters: opConfig.Parameters,
		}
	}

	return reversed, nil
}

// ParsePipeline builds a pipeline from a comma-separated list of operation
// names. The pipeline is marked reversible when every step is.
func ParsePipeline(ops string, params map[string]interface{}) (*Pipeline, error) {
	p := &Pipeline{Reversible: true}
	for _, name := range splitList(ops) {
		op, ok := GetOperation(name)
		if !ok {
			return nil, fmt.Errorf("unknown operation: %s", name)
		}
		if _, ok := op.Reverse(); !ok {
			p.Reversible = false
		}
		p.Operations = append(p.Operations, OperationConfig{Name: name, Parameters: params})
	}
	if len(p.Operations) == 0 {
		return nil, fmt.Errorf("pipeline has no operations")
	}
	return p, nil
}

// Recipe is a named, reusable pipeline
type Recipe struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
	Pipeline    Pipeline `json:"pipeline"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

// DetectionResult is one guess about the encoding of ciphertext text
type DetectionResult struct {
	Encoding   string  `json:"encoding"`
	Confidence float64 `json:"confidence"` // 0.0 to 1.0
	Reasoning  string  `json:"reasoning"`
	Operation  string  `json:"operation"` // operation that decodes it
}

// Detector identifies the textual encoding of ciphertext
type Detector interface {
	Detect(ctx context.Context, input []byte) ([]DetectionResult, error)
	SupportedEncodings() []string
}

// BaseOperation provides the metadata half of Operation
type BaseOperation struct {
	NameValue        string
	TypeValue        OperationType
	DescriptionValue string
	ReverseOp        Operation
}

func (b *BaseOperation) Name() string {
	return b.NameValue
}

func (b *BaseOperation) Type() OperationType {
	return b.TypeValue
}

func (b *BaseOperation) Description() string {
	return b.DescriptionValue
}

func (b *BaseOperation) Reverse() (Operation, bool) {
	if b.ReverseOp == nil {
		return nil, false
	}
	return b.ReverseOp, true
}
