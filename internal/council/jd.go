package council

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/council-ai/council/internal/council/prompts"
	"github.com/council-ai/council/internal/generate"
)

// JDParser extracts role/company/location metadata from raw job text.
type JDParser struct {
	gen     *generate.Generator
	factory *prompts.Factory
	logger  *zap.Logger
	retries int
}

// NewJDParser builds the metadata extraction agent.
func NewJDParser(gen *generate.Generator, factory *prompts.Factory, retries int, logger *zap.Logger) *JDParser {
	if retries <= 0 {
		retries = 2
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JDParser{gen: gen, factory: factory, logger: logger, retries: retries}
}

// Parse returns the extracted metadata, falling back to placeholder values
// when extraction fails so the pipeline can keep processing the job.
func (p *JDParser) Parse(ctx context.Context, rawJD string) (*BasicInfo, error) {
	prompt, err := p.factory.JDPrompt(rawJD)
	if err != nil {
		return nil, fmt.Errorf("build jd prompt: %w", err)
	}

	payload := p.gen.Generate(ctx, prompt, p.retries, map[string]any{
		"role":     "Engineer",
		"company":  "Unknown Company",
		"location": "Remote",
		"keywords": []any{},
	})

	info, err := DecodeBasicInfo(payload)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(info.Company) == "" {
		info.Company = "Unknown Company"
	}
	if strings.TrimSpace(info.Role) == "" {
		info.Role = "Engineer"
	}

	p.logger.Debug("extracted jd metadata",
		zap.String("company", info.Company),
		zap.String("role", info.Role),
		zap.String("location", info.Location),
	)

	return info, nil
}
