package console

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"student-console/internal/messaging"
	"student-console/internal/query"
	"student-console/internal/student"
	"student-console/internal/studentclient"

	"github.com/go-playground/validator/v10"
)

var (
	ErrIncompleteDraft = errors.New("draft is incomplete")
	ErrInvalidID       = errors.New("invalid student id")
)

// AddPath is the fixed route of the add form.
const AddPath = "/students/add"

type Mode int

const (
	ModeAdd Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeAdd {
		return "add"
	}
	return "edit"
}

// IncompleteDraftError lists the draft fields that are empty or invalid.
type IncompleteDraftError struct {
	Fields []string
}

func (e *IncompleteDraftError) Error() string {
	return fmt.Sprintf("%s: missing %s", ErrIncompleteDraft, strings.Join(e.Fields, ", "))
}

func (e *IncompleteDraftError) Is(target error) bool {
	return target == ErrIncompleteDraft
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	return v
}

// RouteMode derives the form mode from the request path and its id
// parameter. Every path other than AddPath is an edit of idParam.
func RouteMode(path, idParam string) (Mode, int, error) {
	if strings.TrimSuffix(path, "/") == AddPath {
		return ModeAdd, 0, nil
	}
	id, err := strconv.Atoi(idParam)
	if err != nil || id < 1 {
		return ModeEdit, 0, fmt.Errorf("%w: %q", ErrInvalidID, idParam)
	}
	return ModeEdit, id, nil
}

// FormView is the add/edit form. It is not safe for concurrent use.
type FormView struct {
	c    *Console
	mode Mode
	id   int

	draft    student.Draft
	syncedAt time.Time

	create Mutation[student.Student]
	update Mutation[student.Student]
}

func (c *Console) NewFormView(mode Mode, id int) *FormView {
	f := &FormView{
		c:     c,
		mode:  mode,
		id:    id,
		draft: student.BlankDraft(),
	}
	f.create.Reset()
	f.update.Reset()
	return f
}

func (f *FormView) Mode() Mode { return f.mode }
func (f *FormView) ID() int    { return f.id }

func (f *FormView) Draft() student.Draft { return f.draft }

// Mount loads the record being edited and copies it into the draft. It does
// nothing in add mode.
func (f *FormView) Mount(ctx context.Context) error {
	if f.mode == ModeAdd {
		return nil
	}
	_, err := query.Get(ctx, f.c.cache, DetailKey(f.id), f.c.detailFetcher(f.id), f.c.detailOptions())
	f.Sync()
	return err
}

// Sync copies the cached record into the draft when the cache holds a
// newer version than the one last copied. It reports whether it did.
func (f *FormView) Sync() bool {
	if f.mode == ModeAdd {
		return false
	}
	state := f.Detail()
	s, ok := query.Data[student.Student](state)
	if !ok || state.UpdatedAt.Equal(f.syncedAt) {
		return false
	}
	f.draft = student.DraftOf(s)
	f.syncedAt = state.UpdatedAt
	return true
}

// Detail is the cache state of the record being edited.
func (f *FormView) Detail() query.State {
	state, _ := f.c.cache.State(DetailKey(f.id))
	return state
}

// Change sets one draft field and clears the outcome of both mutations.
func (f *FormView) Change(field, value string) error {
	if err := f.draft.Set(field, value); err != nil {
		return err
	}
	f.create.Reset()
	f.update.Reset()
	return nil
}

// Submit creates or updates the student from the draft. An incomplete draft
// fails with ErrIncompleteDraft before any request is made.
func (f *FormView) Submit(ctx context.Context) (student.Student, error) {
	if err := checkDraft(f.draft); err != nil {
		return student.Student{}, err
	}
	if f.mode == ModeAdd {
		return f.submitCreate(ctx)
	}
	return f.submitUpdate(ctx)
}

func (f *FormView) submitCreate(ctx context.Context) (student.Student, error) {
	draft := f.draft
	created, err := f.create.run(ctx, func(ctx context.Context) (student.Student, error) {
		return f.c.backend.CreateStudent(ctx, draft)
	})
	f.c.metrics.RecordMutation(ctx, string(messaging.ActionCreated), err)
	if err != nil {
		f.c.logger.WarnContext(ctx, "failed to create student", "error", err)
		return student.Student{}, err
	}

	f.draft = student.BlankDraft()
	f.c.logger.InfoContext(ctx, "student created", "student_id", created.ID)
	f.c.publish(ctx, messaging.ActionCreated, created.ID)
	return created, nil
}

func (f *FormView) submitUpdate(ctx context.Context) (student.Student, error) {
	id, next := f.id, f.draft.WithID(f.id)
	updated, err := f.update.run(ctx, func(ctx context.Context) (student.Student, error) {
		return f.c.backend.UpdateStudent(ctx, id, next)
	})
	f.c.metrics.RecordMutation(ctx, string(messaging.ActionUpdated), err)
	if err != nil {
		f.c.logger.WarnContext(ctx, "failed to update student", "student_id", id, "error", err)
		return student.Student{}, err
	}

	f.c.cache.SetEntry(DetailKey(id), updated)
	f.Sync()
	f.c.logger.InfoContext(ctx, "student updated", "student_id", id)
	f.c.publish(ctx, messaging.ActionUpdated, id)
	return updated, nil
}

// Active is the mutation of the current mode.
func (f *FormView) Active() Mutation[student.Student] {
	if f.mode == ModeAdd {
		return f.create
	}
	return f.update
}

func (f *FormView) Create() Mutation[student.Student] { return f.create }
func (f *FormView) Update() Mutation[student.Student] { return f.update }

// FieldErrors returns the per-field messages of a 422 response to the
// active mutation. Any other outcome yields an empty map.
func (f *FormView) FieldErrors() map[string]string {
	fields := studentclient.FieldErrors(f.Active().Err)
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func checkDraft(d student.Draft) error {
	err := validate.Struct(d)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		missing = append(missing, fe.Field())
	}
	return &IncompleteDraftError{Fields: missing}
}
