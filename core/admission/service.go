package admission

import (
	"context"
	"encoding/json"
	"errors"
	"net/mail"
	"sort"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

var (
	// errors
	ErrNotFound      = errors.New("admission draft not found")
	ErrSubmitted     = errors.New("admission already submitted")
	ErrStepLocked    = errors.New("complete the previous steps first")
	ErrNotInReview   = errors.New("admission is not ready for submission")
	errInvalidData   = errors.New("invalid admission data")
	errMalformedData = errors.New("malformed admission data")
)

const ConfirmationTemplate = "admission_confirmation"

func init() {
	core.RegisterEmailTemplate(ConfirmationTemplate,
		`Dear {{.Data.FirstName}},

We received your application to {{.Data.ProgramID}} (reference {{.Data.Reference}}).
You can follow its progress at {{.FrontendBaseURL}}/admissions/{{.Data.Reference}}.`,
		`<p>Dear {{.Data.FirstName}},</p>
<p>We received your application (reference <strong>{{.Data.Reference}}</strong>).</p>
<p><a href="{{.FrontendBaseURL}}/admissions/{{.Data.Reference}}">Follow its progress</a></p>`,
	)
}

type (
	// Repository persists drafts.
	Repository interface {
		Save(ctx context.Context, d Draft) error
		// Get returns ErrNotFound for unknown ids.
		Get(ctx context.Context, id string) (Draft, error)
		Delete(ctx context.Context, id string) error
	}

	// Submitter posts applications to the backend.
	Submitter interface {
		PostPublic(ctx context.Context, path string, body, result interface{}) error
	}

	Service struct {
		repo       Repository
		submitter  Submitter
		mailer     core.EmailService
		validate   *validator.Validate
		translator ut.Translator
		now        func() time.Time
	}
)

func NewService(repo Repository, submitter Submitter, mailer core.EmailService, validate *validator.Validate, translator ut.Translator) *Service {
	return &Service{
		repo:       repo,
		submitter:  submitter,
		mailer:     mailer,
		validate:   validate,
		translator: translator,
		now:        time.Now,
	}
}

// Start creates an empty draft on the first step.
func (svc *Service) Start(ctx context.Context) (Draft, error) {
	now := svc.now().UTC()
	d := Draft{ID: uuid.New().String(), Step: StepPersonal, CreatedAt: now, UpdatedAt: now}
	if err := svc.repo.Save(ctx, d); err != nil {
		return Draft{}, pkgerrors.Wrap(err, "saving draft")
	}
	return d, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Draft, error) {
	return svc.repo.Get(ctx, id)
}

// SaveStep validates and saves the data of step. Saving the current step advances the draft;
// earlier steps may be edited, later ones are locked.
func (svc *Service) SaveStep(ctx context.Context, id, step string, raw []byte) (Draft, error) {
	d, err := svc.editable(ctx, id)
	if err != nil {
		return Draft{}, err
	}

	idx := stepIndex(step)
	if idx < 0 {
		return Draft{}, core.NewValidationError(pkgerrors.Errorf("unknown step %q", step),
			core.FieldError{Field: "step", Error: "must be one of " + strings.Join(Steps, ", ")})
	}
	if idx > stepIndex(d.Step) {
		return Draft{}, core.NewValidationError(ErrStepLocked, core.FieldError{Field: "step", Error: ErrStepLocked.Error()})
	}

	data := stepData(step)
	if err = json.Unmarshal(raw, data); err != nil {
		return Draft{}, core.NewValidationError(errMalformedData, core.FieldError{Field: step, Error: err.Error()})
	}
	if err = svc.check(data); err != nil {
		return Draft{}, err
	}

	d.set(data)
	if step == d.Step && idx < len(Steps)-1 {
		d.Step = Steps[idx+1]
	}
	if err = svc.save(ctx, &d); err != nil {
		return Draft{}, err
	}
	return d, nil
}

// Back returns to the previous step. Nothing is validated.
func (svc *Service) Back(ctx context.Context, id string) (Draft, error) {
	d, err := svc.editable(ctx, id)
	if err != nil {
		return Draft{}, err
	}
	if idx := stepIndex(d.Step); idx > 0 {
		d.Step = Steps[idx-1]
	}
	if err = svc.save(ctx, &d); err != nil {
		return Draft{}, err
	}
	return d, nil
}

// Submit posts the application once every step is valid and sends the confirmation email.
func (svc *Service) Submit(ctx context.Context, id string) (Draft, error) {
	d, err := svc.editable(ctx, id)
	if err != nil {
		return Draft{}, err
	}
	if d.Step != StepReview {
		return Draft{}, core.NewValidationError(ErrNotInReview, core.FieldError{Field: "step", Error: ErrNotInReview.Error()})
	}

	var fields []core.FieldError
	for _, step := range Steps {
		data := d.data(step)
		if data == nil {
			data = stepData(step)
		}
		if err = svc.check(data); err != nil {
			var verr *core.ValidationError
			if !errors.As(err, &verr) {
				return Draft{}, err
			}
			for _, f := range verr.Fields {
				fields = append(fields, core.FieldError{Field: step + "." + f.Field, Error: f.Error})
			}
		}
	}
	if len(fields) > 0 {
		return Draft{}, core.NewValidationError(errInvalidData, fields...)
	}

	app := Application{Personal: *d.Personal, Academic: *d.Academic, ProgramChoice: *d.Program}
	var created struct {
		Reference string `json:"reference"`
	}
	if err = svc.submitter.PostPublic(ctx, "/admissions", app, &created); err != nil {
		return Draft{}, pkgerrors.Wrap(err, "submitting admission")
	}

	d.Submitted = true
	d.Reference = created.Reference
	if d.Reference == "" {
		d.Reference = "ADM-" + strings.ToUpper(strings.ReplaceAll(d.ID, "-", "")[:8])
	}
	if err = svc.save(ctx, &d); err != nil {
		return Draft{}, err
	}

	svc.mailer.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: d.Personal.FirstName + " " + d.Personal.LastName, Address: d.Personal.Email}},
		Subject:      "Your admission application",
		Category:     "admissions",
		Tags:         map[string]string{"reference": d.Reference, "program_id": d.Program.ProgramID},
		TemplateName: ConfirmationTemplate,
		TemplateData: map[string]string{
			"FirstName": d.Personal.FirstName,
			"ProgramID": d.Program.ProgramID,
			"Reference": d.Reference,
		},
	})
	return d, nil
}

func (svc *Service) editable(ctx context.Context, id string) (Draft, error) {
	d, err := svc.repo.Get(ctx, id)
	if err != nil {
		return Draft{}, err
	}
	if d.Submitted {
		return Draft{}, core.NewValidationError(ErrSubmitted, core.FieldError{Field: "id", Error: ErrSubmitted.Error()})
	}
	return d, nil
}

func (svc *Service) save(ctx context.Context, d *Draft) error {
	d.UpdatedAt = svc.now().UTC()
	return pkgerrors.Wrap(svc.repo.Save(ctx, *d), "saving draft")
}

// check validates data and translates the failures into a core.ValidationError.
func (svc *Service) check(data interface{}) error {
	err := svc.validate.Struct(data)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return pkgerrors.Wrap(err, "validating admission data")
	}

	msgs := core.TranslateErrors(verrs, svc.translator)
	names := make([]string, 0, len(msgs))
	for name := range msgs {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]core.FieldError, 0, len(names))
	for _, name := range names {
		fields = append(fields, core.FieldError{Field: name, Error: msgs[name]})
	}
	return core.NewValidationError(errInvalidData, fields...)
}
