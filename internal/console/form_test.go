package console_test

import (
	"context"
	"net/http"
	"testing"

	"student-console/internal/console"
	"student-console/internal/messaging"
	"student-console/internal/query"
	"student-console/internal/student"
	"student-console/internal/studentclient"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteMode(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		id      string
		mode    console.Mode
		wantID  int
		wantErr bool
	}{
		{name: "add", path: "/students/add", mode: console.ModeAdd},
		{name: "add trailing slash", path: "/students/add/", mode: console.ModeAdd},
		{name: "edit", path: "/students/12", id: "12", mode: console.ModeEdit, wantID: 12},
		{name: "edit bad id", path: "/students/x", id: "x", mode: console.ModeEdit, wantErr: true},
		{name: "edit zero id", path: "/students/0", id: "0", mode: console.ModeEdit, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, id, err := console.RouteMode(tt.path, tt.id)
			assert.Equal(t, tt.mode, mode)
			if tt.wantErr {
				assert.ErrorIs(t, err, console.ErrInvalidID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestFormView_Add(t *testing.T) {
	f := setup(t, testOptions())
	ctx := context.Background()

	form := f.console.NewFormView(console.ModeAdd, 0)
	require.NoError(t, form.Mount(ctx))
	assert.Equal(t, student.BlankDraft(), form.Draft())
	assert.Equal(t, student.GenderOther, form.Draft().Gender)

	draft := completeDraft("ada@example.com")
	fillDraft(t, form, draft)

	created, err := form.Submit(ctx)
	require.NoError(t, err)
	assert.Positive(t, created.ID)
	assert.Equal(t, draft.WithID(created.ID), created)
	assert.Equal(t, student.BlankDraft(), form.Draft(), "draft resets after create")
	assert.True(t, form.Create().IsSuccess())
	assert.Equal(t, created, form.Create().Data)

	stored, ok := f.api.Student(created.ID)
	require.True(t, ok)
	assert.Equal(t, created, stored)

	events := f.events.Events()
	require.Len(t, events, 1)
	assert.Equal(t, messaging.ActionCreated, events[0].Action)
	assert.Equal(t, created.ID, events[0].StudentID)
}

func TestFormView_IncompleteDraft(t *testing.T) {
	f := setup(t, testOptions())
	form := f.console.NewFormView(console.ModeAdd, 0)
	require.NoError(t, form.Change(student.FieldEmail, "ada@example.com"))
	require.NoError(t, form.Change(student.FieldFirstName, "Ada"))

	_, err := form.Submit(context.Background())
	require.ErrorIs(t, err, console.ErrIncompleteDraft)

	var incomplete *console.IncompleteDraftError
	require.ErrorAs(t, err, &incomplete)
	assert.ElementsMatch(t, []string{
		student.FieldLastName,
		student.FieldCountry,
		student.FieldAvatar,
		student.FieldBTCAddress,
	}, incomplete.Fields)

	assert.Equal(t, 0, f.api.Calls("POST /students"))
	assert.True(t, form.Create().IsIdle())
}

func TestFormView_Edit(t *testing.T) {
	f := setup(t, testOptions())
	seeded := f.api.Seed(3)
	target := seeded[1]
	ctx := context.Background()

	form := f.console.NewFormView(console.ModeEdit, target.ID)
	require.NoError(t, form.Mount(ctx))
	assert.Equal(t, student.DraftOf(target), form.Draft())

	require.NoError(t, form.Change(student.FieldFirstName, "Grace"))
	require.NoError(t, form.Change(student.FieldGender, "Male"))
	draft := form.Draft()

	updated, err := form.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, target.ID, updated.ID)
	assert.Equal(t, draft, student.DraftOf(updated))
	assert.True(t, form.Update().IsSuccess())

	t.Run("response is written to the cache", func(t *testing.T) {
		state, ok := f.cache.State(console.DetailKey(target.ID))
		require.True(t, ok)
		cached, ok := query.Data[student.Student](state)
		require.True(t, ok)
		assert.Equal(t, updated, cached)

		again := f.console.NewFormView(console.ModeEdit, target.ID)
		require.NoError(t, again.Mount(ctx))
		assert.Equal(t, draft, again.Draft())
		assert.Equal(t, 1, f.api.Calls("GET /students/{id}"), "no refetch after update")
	})

	events := f.events.Events()
	require.Len(t, events, 1)
	assert.Equal(t, messaging.ActionUpdated, events[0].Action)
}

func TestFormView_MountNotFound(t *testing.T) {
	f := setup(t, testOptions())
	form := f.console.NewFormView(console.ModeEdit, 404)

	err := form.Mount(context.Background())
	require.ErrorIs(t, err, studentclient.ErrNotFound)
	assert.Equal(t, 1, f.api.Calls("GET /students/{id}"), "not found is not retried")
	assert.True(t, form.Detail().IsError())
	assert.Equal(t, student.BlankDraft(), form.Draft())
}

func TestFormView_Sync(t *testing.T) {
	f := setup(t, testOptions())
	seeded := f.api.Seed(1)
	id := seeded[0].ID

	form := f.console.NewFormView(console.ModeEdit, id)
	require.NoError(t, form.Mount(context.Background()))
	assert.False(t, form.Sync(), "already in sync")

	refreshed := seeded[0]
	refreshed.Country = "Japan"
	f.cache.SetEntry(console.DetailKey(id), refreshed)

	assert.True(t, form.Sync())
	assert.Equal(t, "Japan", form.Draft().Country)
	assert.False(t, form.Sync())
}

func TestFormView_FieldErrors(t *testing.T) {
	t.Run("422 exposes exactly the payload fields", func(t *testing.T) {
		f := setup(t, testOptions())
		seeded := f.api.Seed(1)

		form := f.console.NewFormView(console.ModeAdd, 0)
		fillDraft(t, form, completeDraft(seeded[0].Email))

		_, err := form.Submit(context.Background())
		require.Error(t, err)
		assert.True(t, form.Create().IsError())
		assert.Equal(t, map[string]string{student.FieldEmail: "Email already exists"}, form.FieldErrors())
		assert.Equal(t, completeDraft(seeded[0].Email), form.Draft(), "draft kept on failure")
	})

	t.Run("other errors expose none", func(t *testing.T) {
		f := setup(t, testOptions())
		f.api.FailNext(http.StatusInternalServerError)

		form := f.console.NewFormView(console.ModeAdd, 0)
		fillDraft(t, form, completeDraft("ada@example.com"))

		_, err := form.Submit(context.Background())
		require.Error(t, err)
		assert.True(t, form.Active().IsError())
		assert.Empty(t, form.FieldErrors())
	})

	t.Run("edit mode reads the update mutation", func(t *testing.T) {
		f := setup(t, testOptions())
		seeded := f.api.Seed(2)
		ctx := context.Background()

		form := f.console.NewFormView(console.ModeEdit, seeded[0].ID)
		require.NoError(t, form.Mount(ctx))
		require.NoError(t, form.Change(student.FieldEmail, "not-an-email"))

		_, err := form.Submit(ctx)
		require.Error(t, err)
		assert.Equal(t, []string{student.FieldEmail}, keys(form.FieldErrors()))
	})
}

func TestFormView_ChangeClearsMutations(t *testing.T) {
	t.Run("add", func(t *testing.T) {
		f := setup(t, testOptions())
		seeded := f.api.Seed(1)
		form := f.console.NewFormView(console.ModeAdd, 0)
		fillDraft(t, form, completeDraft(seeded[0].Email))

		_, err := form.Submit(context.Background())
		require.Error(t, err)
		require.NotEmpty(t, form.FieldErrors())

		require.NoError(t, form.Change(student.FieldEmail, "fresh@example.com"))
		assert.True(t, form.Create().IsIdle())
		assert.True(t, form.Update().IsIdle())
		assert.Nil(t, form.Create().Err)
		assert.Empty(t, form.FieldErrors())
	})

	t.Run("edit", func(t *testing.T) {
		f := setup(t, testOptions())
		seeded := f.api.Seed(2)
		ctx := context.Background()
		form := f.console.NewFormView(console.ModeEdit, seeded[0].ID)
		require.NoError(t, form.Mount(ctx))
		require.NoError(t, form.Change(student.FieldEmail, seeded[1].Email))

		_, err := form.Submit(ctx)
		require.Error(t, err)
		require.NotEmpty(t, form.FieldErrors())

		require.NoError(t, form.Change(student.FieldLastName, "Hopper"))
		assert.True(t, form.Update().IsIdle())
		assert.Empty(t, form.FieldErrors())
	})

	t.Run("success is cleared too", func(t *testing.T) {
		f := setup(t, testOptions())
		form := f.console.NewFormView(console.ModeAdd, 0)
		fillDraft(t, form, completeDraft("ada@example.com"))
		_, err := form.Submit(context.Background())
		require.NoError(t, err)
		require.True(t, form.Create().IsSuccess())

		require.NoError(t, form.Change(student.FieldCountry, "Peru"))
		assert.True(t, form.Create().IsIdle())
	})
}

func TestFormView_ChangeRejectsUnknownValues(t *testing.T) {
	f := setup(t, testOptions())
	form := f.console.NewFormView(console.ModeAdd, 0)

	assert.Error(t, form.Change(student.FieldGender, "robot"))
	assert.Error(t, form.Change("nickname", "ada"))
	assert.Equal(t, student.BlankDraft(), form.Draft())
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
