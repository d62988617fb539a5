package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"intake-platform/internal/intake"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ErrNoFields is returned when the model produced no usable output.
var ErrNoFields = errors.New("extraction: no fields in model output")

const extractionPrompt = `Extract customer information from this phone call transcript. Return ONLY a JSON object with these keys (use null for anything not mentioned):

{
  "first_name": "caller's first name",
  "last_name": "caller's last name",
  "phone": "phone number, digits only",
  "address": "street address or location",
  "vehicle_year": "4-digit vehicle year",
  "vehicle_make": "vehicle make (Honda, Ford, Toyota, ...)",
  "vehicle_model": "vehicle model (Civic, F-150, ...)",
  "engine_size": "engine size if stated (2.4L, V6, ...)",
  "problem_description": "what needs to be fixed or the service requested"
}

Rules:
- Extract only what is clearly stated; do NOT guess or make up information.
- For phone: digits only, no formatting.
- For vehicle_year: a 4-digit year if mentioned.
- Standardize common vehicle brands.

Transcript:
%s`

// OpenAIExtractor turns a transcript into structured customer fields using
// a chat completion constrained to JSON output.
type OpenAIExtractor struct {
	client openai.Client
	model  openai.ChatModel
}

func NewOpenAIExtractor(apiKey, model string) *OpenAIExtractor {
	m := openai.ChatModel(model)
	if model == "" {
		m = openai.ChatModelGPT4oMini
	}
	return &OpenAIExtractor{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  m,
	}
}

func (e *OpenAIExtractor) Extract(ctx context.Context, transcript string) (intake.CustomerFields, error) {
	if strings.TrimSpace(transcript) == "" {
		return intake.CustomerFields{}, ErrNoFields
	}

	resp, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: e.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(fmt.Sprintf(extractionPrompt, transcript)),
		},
		MaxTokens:   openai.Int(250),
		Temperature: openai.Float(0.1),
	})
	if err != nil {
		return intake.CustomerFields{}, fmt.Errorf("extraction: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return intake.CustomerFields{}, ErrNoFields
	}
	return ParseFields(resp.Choices[0].Message.Content)
}

// ParseFields decodes the model output into a field set. Models sometimes
// wrap JSON in markdown fences or prose, so it extracts the outermost
// object before decoding. The result is all-or-nothing: any decode problem
// or an entirely empty object is a failure.
func ParseFields(content string) (intake.CustomerFields, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return intake.CustomerFields{}, ErrNoFields
	}

	// Decode through string pointers so JSON nulls map to absent fields.
	var wire struct {
		FirstName          *string `json:"first_name"`
		LastName           *string `json:"last_name"`
		Phone              *string `json:"phone"`
		Address            *string `json:"address"`
		VehicleYear        *string `json:"vehicle_year"`
		VehicleMake        *string `json:"vehicle_make"`
		VehicleModel       *string `json:"vehicle_model"`
		EngineSize         *string `json:"engine_size"`
		ProblemDescription *string `json:"problem_description"`
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &wire); err != nil {
		return intake.CustomerFields{}, fmt.Errorf("extraction: decode model output: %w", err)
	}

	fields := intake.CustomerFields{
		FirstName:          deref(wire.FirstName),
		LastName:           deref(wire.LastName),
		Phone:              deref(wire.Phone),
		Address:            deref(wire.Address),
		VehicleYear:        deref(wire.VehicleYear),
		VehicleMake:        deref(wire.VehicleMake),
		VehicleModel:       deref(wire.VehicleModel),
		EngineSize:         deref(wire.EngineSize),
		ProblemDescription: deref(wire.ProblemDescription),
	}
	if fields.Empty() {
		return intake.CustomerFields{}, ErrNoFields
	}
	return fields, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
