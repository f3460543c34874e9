package nodes

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/driftworks/conduit/pkg/pipeline"
)

const TypeMock pipeline.NodeType = "mock"

// mockKinds maps a data kind to its generator. Generators take the faker
// plus the node's min/max bounds, which only some kinds use.
var mockKinds = map[string]func(f *gofakeit.Faker, minVal, maxVal float64) any{
	"word":       func(f *gofakeit.Faker, _, _ float64) any { return f.Word() },
	"sentence":   func(f *gofakeit.Faker, _, _ float64) any { return f.Sentence(8) },
	"first_name": func(f *gofakeit.Faker, _, _ float64) any { return f.FirstName() },
	"last_name":  func(f *gofakeit.Faker, _, _ float64) any { return f.LastName() },
	"full_name":  func(f *gofakeit.Faker, _, _ float64) any { return f.Name() },
	"email":      func(f *gofakeit.Faker, _, _ float64) any { return f.Email() },
	"phone":      func(f *gofakeit.Faker, _, _ float64) any { return f.Phone() },
	"age":        func(f *gofakeit.Faker, _, _ float64) any { return f.Number(18, 95) },
	"integer": func(f *gofakeit.Faker, minVal, maxVal float64) any {
		return f.Number(int(minVal), int(maxVal))
	},
	"float": func(f *gofakeit.Faker, minVal, maxVal float64) any {
		return f.Float64Range(minVal, maxVal)
	},
	"boolean":  func(f *gofakeit.Faker, _, _ float64) any { return f.Bool() },
	"date":     func(f *gofakeit.Faker, _, _ float64) any { return f.Date().Format("2006-01-02") },
	"datetime": func(f *gofakeit.Faker, _, _ float64) any { return f.Date().Format(time.RFC3339) },
	"address": func(f *gofakeit.Faker, _, _ float64) any {
		return f.Address().Address
	},
	"city":     func(f *gofakeit.Faker, _, _ float64) any { return f.City() },
	"country":  func(f *gofakeit.Faker, _, _ float64) any { return f.Country() },
	"zipcode":  func(f *gofakeit.Faker, _, _ float64) any { return f.Zip() },
	"url":      func(f *gofakeit.Faker, _, _ float64) any { return f.URL() },
	"username": func(f *gofakeit.Faker, _, _ float64) any { return f.Username() },
	"password": func(f *gofakeit.Faker, _, _ float64) any {
		return f.Password(true, true, true, false, false, 12)
	},
	"uuid": func(f *gofakeit.Faker, _, _ float64) any { return f.UUID() },
	"programming_language": func(f *gofakeit.Faker, _, _ float64) any {
		return f.ProgrammingLanguage()
	},
}

// MockNode generates a sequence of fake data of a configured kind. With a
// nonzero seed the output is reproducible run to run.
type MockNode struct {
	pipeline.Base
	kind string
	size int
	min  float64
	max  float64
	seed uint64
}

// NewMock creates a mock data source for the given kind.
func NewMock(kind string) (*MockNode, error) {
	if _, ok := mockKinds[kind]; !ok {
		return nil, &pipeline.ConfigError{Type: TypeMock, Reason: fmt.Sprintf("unknown data kind %q", kind)}
	}
	n := &MockNode{
		Base: pipeline.NewBase(TypeMock, "Mock ("+kind+")"),
		kind: kind,
		size: 10,
		min:  0,
		max:  100,
	}
	n.AddOptionalInput("size", pipeline.TypeNumber)
	n.AddOptionalInput("min_length", pipeline.TypeNumber)
	n.AddOptionalInput("max_length", pipeline.TypeNumber)
	n.AddOutput("mock_data", pipeline.TypeSequence)
	n.SetConfig("kind", kind)
	n.SetConfig("size", n.size)
	return n, nil
}

// NewMockFromConfig restores a mock node from persisted configuration.
func NewMockFromConfig(cfg map[string]any) (*MockNode, error) {
	n, err := NewMock(configString(cfg, "kind", "word"))
	if err != nil {
		return nil, err
	}
	n.SetSize(configInt(cfg, "size", 10))
	n.SetRange(configNumber(cfg, "min", 0), configNumber(cfg, "max", 100))
	if seed := configInt(cfg, "seed", 0); seed > 0 {
		n.SetSeed(uint64(seed))
	}
	return n, nil
}

// SetSize sets how many elements to generate.
func (n *MockNode) SetSize(size int) {
	if size < 1 {
		size = 1
	}
	n.size = size
	n.SetConfig("size", size)
}

// SetRange bounds the integer and float kinds.
func (n *MockNode) SetRange(minVal, maxVal float64) {
	if maxVal < minVal {
		minVal, maxVal = maxVal, minVal
	}
	n.min, n.max = minVal, maxVal
	n.SetConfig("min", minVal)
	n.SetConfig("max", maxVal)
}

// SetSeed makes generation deterministic. Zero restores random seeding.
func (n *MockNode) SetSeed(seed uint64) {
	n.seed = seed
	n.SetConfig("seed", seed)
}

// CanExecute reports true: a mock source needs no inputs.
func (n *MockNode) CanExecute() bool { return true }

func (n *MockNode) Process(_ context.Context) bool {
	size := n.size
	if f, ok := toNumber(n.InputValue("size")); ok && int(f) > 0 {
		size = int(f)
	}
	minVal, maxVal := n.min, n.max
	if f, ok := toNumber(n.InputValue("min_length")); ok {
		minVal = f
	}
	if f, ok := toNumber(n.InputValue("max_length")); ok {
		maxVal = f
	}
	if maxVal < minVal {
		minVal, maxVal = maxVal, minVal
	}

	gen := mockKinds[n.kind]
	faker := gofakeit.New(n.seed)

	out := make([]any, size)
	for i := range out {
		out[i] = gen(faker, minVal, maxVal)
	}
	n.SetOutputValue("mock_data", out)
	return true
}
