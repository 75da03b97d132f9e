package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"deal-checker/internal/domain"
)

const (
	// ListingURLPrefix is the only accepted listing URL prefix. It is a literal
	// prefix match; any path below it is accepted.
	ListingURLPrefix = "https://www.kleinanzeigen.de/"

	DefaultCheckModel    = "gpt-4o"
	DefaultQuestionModel = "gpt-4.1-nano"

	completionTemperature = 0.2
	checkMaxTokens        = 300
	questionMaxTokens     = 400
)

type Extractor interface {
	Extract(ctx context.Context, url string) (domain.Item, error)
}

type Completer interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error)
}

type Models struct {
	Check    string
	Question string
}

type ItemService struct {
	extractor Extractor
	completer Completer
	models    Models
}

type ProxyInput struct {
	URL string
}

type QuestionInput struct {
	URL      string
	Question string
}

type QuestionOutput struct {
	Item        domain.Item
	Question    string
	Answer      string
	Annotations map[string]domain.Annotation
}

type CheckInput struct {
	URL string
}

type CheckOutput struct {
	Item     domain.Item
	Decision domain.Decision
}

func NewItemService(e Extractor, c Completer, models Models) (*ItemService, error) {
	if e == nil {
		return nil, errors.New("usecase: extractor must not be nil")
	}
	if c == nil {
		return nil, errors.New("usecase: completer must not be nil")
	}
	if strings.TrimSpace(models.Check) == "" {
		models.Check = DefaultCheckModel
	}
	if strings.TrimSpace(models.Question) == "" {
		models.Question = DefaultQuestionModel
	}
	return &ItemService{extractor: e, completer: c, models: models}, nil
}

// Proxy returns the extracted item as-is.
func (s *ItemService) Proxy(ctx context.Context, in ProxyInput) (domain.Item, error) {
	if err := ValidateListingURL(in.URL); err != nil {
		return domain.Item{}, err
	}
	return s.extract(ctx, in.URL)
}

// Ask answers a free-form question about the listing as an HTML fragment.
func (s *ItemService) Ask(ctx context.Context, in QuestionInput) (QuestionOutput, error) {
	if err := ValidateListingURL(in.URL); err != nil {
		return QuestionOutput{}, err
	}
	if strings.TrimSpace(in.Question) == "" {
		return QuestionOutput{}, newError(ErrorInvalidInput, ReasonQuestionRequired, nil)
	}

	item, err := s.extract(ctx, in.URL)
	if err != nil {
		return QuestionOutput{}, err
	}
	prompt, err := buildQuestionPrompt(item, in.Question)
	if err != nil {
		return QuestionOutput{}, err
	}

	completion, err := s.completer.Complete(ctx, domain.CompletionRequest{
		Model:       s.models.Question,
		Prompt:      prompt,
		Temperature: completionTemperature,
		MaxTokens:   questionMaxTokens,
	})
	if err != nil {
		return QuestionOutput{}, fmt.Errorf("usecase: answer question: %w", err)
	}

	annotations := make(map[string]domain.Annotation, len(completion.Annotations))
	for i, a := range completion.Annotations {
		annotations[strconv.Itoa(i)] = a
	}
	return QuestionOutput{
		Item:        item,
		Question:    in.Question,
		Answer:      completion.Text,
		Annotations: annotations,
	}, nil
}

// Check asks the model for a buy decision and validates it.
func (s *ItemService) Check(ctx context.Context, in CheckInput) (CheckOutput, error) {
	if err := ValidateListingURL(in.URL); err != nil {
		return CheckOutput{}, err
	}

	item, err := s.extract(ctx, in.URL)
	if err != nil {
		return CheckOutput{}, err
	}
	prompt, err := buildDecisionPrompt(item)
	if err != nil {
		return CheckOutput{}, err
	}

	completion, err := s.completer.Complete(ctx, domain.CompletionRequest{
		Model:       s.models.Check,
		Prompt:      prompt,
		Temperature: completionTemperature,
		MaxTokens:   checkMaxTokens,
		JSONMode:    true,
	})
	if err != nil {
		return CheckOutput{}, fmt.Errorf("usecase: request decision: %w", err)
	}

	decision, err := parseDecision(completion.Text)
	if err != nil {
		return CheckOutput{}, err
	}
	return CheckOutput{Item: item, Decision: decision}, nil
}

func (s *ItemService) extract(ctx context.Context, url string) (domain.Item, error) {
	item, err := s.extractor.Extract(ctx, url)
	if err != nil {
		return domain.Item{}, fmt.Errorf("usecase: extract item: %w", err)
	}
	return item, nil
}

// ValidateListingURL reports a blank URL or one outside ListingURLPrefix.
func ValidateListingURL(url string) error {
	if strings.TrimSpace(url) == "" {
		return newError(ErrorInvalidInput, ReasonURLRequired, nil)
	}
	if !strings.HasPrefix(url, ListingURLPrefix) {
		return newError(ErrorInvalidInput, ReasonURLInvalid, nil)
	}
	return nil
}
