package output

import (
	"encoding/json"

	"github.com/stackplan/wealthsim/internal/domain"
)

// JSONFormatter serializes the full projection as pretty-printed JSON.
type JSONFormatter struct{}

func (j JSONFormatter) Name() string { return "json" }

func (j JSONFormatter) Format(res *domain.ProjectionResult) ([]byte, error) {
	return json.MarshalIndent(res, "", "  ")
}
