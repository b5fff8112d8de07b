// Package classifier runs one classification: validate the submission, predict
// the HS code, explain it, and record the result in the user's history.
package classifier

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aconic-ni/customsclass-r/internal/history"
	"github.com/aconic-ni/customsclass-r/internal/hscode"
	"github.com/aconic-ni/customsclass-r/internal/util"
)

// GenericMessage is the only failure text shown to users.
const GenericMessage = "An unexpected error occurred. Please try again."

// SaveWarning is attached to an Outcome whose result could not be stored.
const SaveWarning = "The classification succeeded but could not be saved to your history."

var tracer = otel.Tracer("github.com/aconic-ni/customsclass-r/internal/classifier")

// Predictor produces the HS code for a product.
type Predictor interface {
	Predict(ctx context.Context, brand, description string) (hscode.PredictionResult, error)
}

// Explainer produces the catalogue-style explanation for a predicted code.
type Explainer interface {
	Explain(ctx context.Context, brand, description, code string) (hscode.ExplanationResult, error)
}

// HistoryWriter stores a finished classification.
type HistoryWriter interface {
	Save(ctx context.Context, userID, brand, description string, result hscode.ResultData) (history.Item, error)
}

// Failure is returned when a stage after validation fails. Message is safe to
// show; the cause is only logged.
type Failure struct {
	Message string
	Stage   string
	Err     error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s failed: %v", f.Stage, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Outcome is the result of a successful classification. Item is nil unless
// the result was saved.
type Outcome struct {
	Result  hscode.ResultData
	Item    *history.Item
	Saved   bool
	Warning string
}

// Options configures a Service.
type Options struct {
	RequireUser bool
}

// Service orchestrates a classification run.
type Service struct {
	validator *Validator
	predictor Predictor
	explainer Explainer
	history   HistoryWriter
}

// NewService wires the stages together. writer may be nil, in which case
// nothing is persisted.
func NewService(predictor Predictor, explainer Explainer, writer HistoryWriter, opts Options) (*Service, error) {
	if predictor == nil || explainer == nil {
		return nil, fmt.Errorf("classifier requires a predictor and an explainer")
	}
	v, err := NewValidator(opts.RequireUser)
	if err != nil {
		return nil, err
	}
	return &Service{validator: v, predictor: predictor, explainer: explainer, history: writer}, nil
}

// Classify validates req, predicts and explains its HS code, then saves the
// result when the request carries a user id. Stages run strictly in order and
// the first failure stops the run.
func (s *Service) Classify(ctx context.Context, req Request) (Outcome, error) {
	ctx, span := tracer.Start(ctx, "classify")
	defer span.End()
	timer := util.StartTimer()

	req, err := s.validator.Validate(req)
	if err != nil {
		span.SetStatus(codes.Error, "invalid request")
		return Outcome{}, err
	}
	span.SetAttributes(attribute.Bool("classify.anonymous", req.UserID == ""))

	prediction, err := s.predict(ctx, req)
	timer.Lap("predict")
	if err != nil {
		return Outcome{}, s.fail(span, timer, "predict", err)
	}

	explanation, err := s.explain(ctx, req, prediction.HSCode)
	timer.Lap("explain")
	if err != nil {
		return Outcome{}, s.fail(span, timer, "explain", err)
	}

	out := Outcome{Result: hscode.ResultData{Prediction: prediction, Explanation: explanation}}
	if req.UserID != "" && s.history != nil {
		item, err := s.history.Save(ctx, req.UserID, req.Brand, req.Description, out.Result)
		timer.Lap("save")
		if err != nil {
			span.RecordError(err)
			logrus.WithError(err).WithField("user_id", req.UserID).Warn("save classification history")
			out.Warning = SaveWarning
		} else {
			out.Item = &item
			out.Saved = true
		}
	}

	span.SetAttributes(attribute.String("hscode.code", prediction.HSCode))
	logrus.WithFields(timer.Fields()).WithFields(logrus.Fields{
		"hs_code": prediction.HSCode,
		"heading": hscode.Heading(prediction.HSCode),
		"saved":   out.Saved,
	}).Info("classification completed")
	return out, nil
}

func (s *Service) predict(ctx context.Context, req Request) (hscode.PredictionResult, error) {
	ctx, span := tracer.Start(ctx, "predict")
	defer span.End()
	result, err := s.predictor.Predict(ctx, req.Brand, req.Description)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "predict")
	}
	return result, err
}

func (s *Service) explain(ctx context.Context, req Request, code string) (hscode.ExplanationResult, error) {
	ctx, span := tracer.Start(ctx, "explain", trace.WithAttributes(attribute.String("hscode.code", code)))
	defer span.End()
	result, err := s.explainer.Explain(ctx, req.Brand, req.Description, code)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "explain")
	}
	return result, err
}

func (s *Service) fail(span trace.Span, timer *util.Timer, stage string, err error) error {
	span.SetStatus(codes.Error, stage)
	logrus.WithError(err).WithFields(timer.Fields()).WithField("stage", stage).Error("classification failed")
	return &Failure{Message: GenericMessage, Stage: stage, Err: err}
}
