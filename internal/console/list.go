package console

import (
	"context"
	"net/url"
	"strconv"
	"sync"

	"student-console/internal/messaging"
	"student-console/internal/query"
	"student-console/internal/student"
	"student-console/internal/studentclient"
)

// ListRoute reads the page query parameter. Missing, malformed or
// non-positive values mean page 1.
func ListRoute(q url.Values) int {
	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// ListState is what the list page renders.
type ListState struct {
	Page       int
	PageSize   int
	Students   []student.Student
	Total      int
	PageCount  int
	Pagination Pagination

	Status      query.Status
	Fetching    bool
	Placeholder bool
	Err         error
}

func (s ListState) IsLoading() bool { return s.Status == query.StatusLoading }
func (s ListState) IsError() bool   { return s.Status == query.StatusError }

// IsEmpty reports whether there are no rows to show for a settled page.
func (s ListState) IsEmpty() bool {
	return len(s.Students) == 0 && !s.IsLoading()
}

type ListView struct {
	c   *Console
	obs *query.Observer

	mu   sync.Mutex
	page int
}

func (c *Console) NewListView() *ListView {
	v := &ListView{c: c, obs: c.cache.Observe(c.listOptions())}
	v.SetPage(1)
	return v
}

func (v *ListView) Page() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.page
}

// SetPage points the view at page without reading it.
func (v *ListView) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	v.mu.Lock()
	v.page = page
	v.mu.Unlock()
	v.obs.SetKey(ListKey(page), v.c.listFetcher(page).Fetcher())
}

// Load shows page, reading it through the cache. The returned state is
// valid even when err is not nil.
func (v *ListView) Load(ctx context.Context, page int) (ListState, error) {
	v.SetPage(page)
	_, err := v.obs.Load(ctx)
	v.c.metrics.RecordStudentsListViewed(ctx)
	return v.State(), err
}

func (v *ListView) Refetch(ctx context.Context) (ListState, error) {
	_, err := v.obs.Refetch(ctx)
	return v.State(), err
}

// Cancel aborts the fetch of the current page, if one is running.
func (v *ListView) Cancel() bool {
	return v.obs.Cancel()
}

// Delete removes a student and marks the current page stale. Other pages
// are left as they are.
func (v *ListView) Delete(ctx context.Context, id int) error {
	err := v.c.backend.DeleteStudent(ctx, id)
	v.c.metrics.RecordMutation(ctx, string(messaging.ActionDeleted), err)
	if err != nil {
		v.c.logger.WarnContext(ctx, "failed to delete student", "student_id", id, "error", err)
		return err
	}

	page := v.Page()
	v.c.cache.Invalidate(ListKey(page))
	v.c.logger.InfoContext(ctx, "student deleted", "student_id", id, "page", page)
	v.c.publish(ctx, messaging.ActionDeleted, id)
	return nil
}

// Hover prefetches a student's detail so opening the edit form is instant.
// It reports whether a fetch was started.
func (v *ListView) Hover(id int) bool {
	return query.Prefetch(v.c.cache, DetailKey(id), v.c.detailFetcher(id), v.c.detailOptions())
}

func (v *ListView) State() ListState {
	res := v.obs.Result()
	page := v.Page()

	s := ListState{
		Page:        page,
		PageSize:    v.c.opts.PageSize,
		Status:      res.Status,
		Fetching:    res.IsFetching(),
		Placeholder: res.IsPlaceholderData,
		Err:         res.Err,
	}
	if data, ok := res.Data.(studentclient.Page); ok {
		s.Students = data.Students
		s.Total = data.Total
	}
	s.PageCount = PageCount(s.Total, s.PageSize)
	s.Pagination = NewPagination(page, s.PageCount)
	return s
}
