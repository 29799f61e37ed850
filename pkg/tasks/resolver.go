// Package tasks aggregates due tasks from a Notion database into overdue,
// due-today and upcoming buckets without knowing the database schema ahead
// of time.
package tasks

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/harrisonrobin/morningbrief/pkg/index"
	"github.com/harrisonrobin/morningbrief/pkg/logging"
	"github.com/harrisonrobin/morningbrief/pkg/model"
	"github.com/harrisonrobin/morningbrief/pkg/notion"
	"github.com/harrisonrobin/morningbrief/pkg/overdue"
)

const (
	defaultPageSize      = 100
	diagnosticSampleSize = 5
)

// Store is the read surface of the task database.
type Store interface {
	RetrieveDatabase(ctx context.Context, databaseID string) (*notion.Database, error)
	QueryDatabase(ctx context.Context, databaseID string, req notion.QueryRequest) (*notion.QueryResponse, error)
	RetrievePage(ctx context.Context, pageID string) (*notion.Page, error)
}

// Options are the schema overrides configured for the task database. Empty
// fields mean "auto-detect".
type Options struct {
	DueProperty    string
	StatusProperty string
	DoneValues     []string
	// DoneCheckbox names an optional legacy checkbox column that also marks a
	// task completed.
	DoneCheckbox string
	// LegacySelectAnd keeps AND-composition of multiple done values for
	// select-typed status columns.
	LegacySelectAnd bool
	PageSize        int
}

func (o Options) pageSize() int {
	if o.PageSize <= 0 || o.PageSize > defaultPageSize {
		return defaultPageSize
	}
	return o.PageSize
}

// Request describes one resolve call.
type Request struct {
	DatabaseID    string
	Location      *time.Location
	LookaheadDays int
	// WindowStart and WindowEnd bound "today" as ISO-8601 timestamps.
	WindowStart string
	WindowEnd   string
	// Now anchors the upcoming horizon. Zero means time.Now().
	Now time.Time
}

// Resolver is stateless; one value may serve concurrent calls.
type Resolver struct {
	store Store
	opts  Options
	log   zerolog.Logger
}

func NewResolver(store Store, opts Options, log zerolog.Logger) *Resolver {
	return &Resolver{store: store, opts: opts, log: log}
}

// Resolve returns today's, overdue and upcoming tasks, none of them done,
// each sorted by due date. It never fails: any error is logged and yields
// empty buckets, which callers must read as "unavailable".
func (r *Resolver) Resolve(ctx context.Context, req Request) (out model.Buckets) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error().Interface("panic", p).Msg("task resolve panicked")
			out = model.Buckets{}
		}
	}()

	buckets, err := r.resolve(ctx, req)
	if err != nil {
		r.log.Error().Err(err).Msg("task fetch failed")
		return model.Buckets{}
	}
	return buckets
}

func (r *Resolver) resolve(ctx context.Context, req Request) (model.Buckets, error) {
	if req.DatabaseID == "" {
		return model.Buckets{}, fmt.Errorf("no task database configured")
	}
	loc := req.Location
	if loc == nil {
		loc = time.UTC
	}
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}

	window, err := overdue.NewWindow(req.WindowStart, req.WindowEnd, now.In(loc), req.LookaheadDays)
	if err != nil {
		return model.Buckets{}, err
	}

	schema, err := r.discover(ctx, req.DatabaseID)
	if err != nil {
		return model.Buckets{}, err
	}
	r.log.Info().
		Str("title", schema.Title).
		Str("due", schema.Due).Str("due_rule", schema.DueRule).
		Str("status", schema.Status).Str("status_type", schema.StatusType).
		Strs("done_values", schema.DoneValues).
		Str("area_relation", schema.AreaRelation).
		Bool("sampled", schema.Sampled).
		Msg("task schema detected")

	queries := schema.BuildQueries(window, r.opts)
	overduePages := r.query(ctx, req.DatabaseID, overdue.Overdue, queries.Overdue)
	todayPages := r.query(ctx, req.DatabaseID, overdue.Today, queries.Today)
	upcomingPages := r.query(ctx, req.DatabaseID, overdue.Upcoming, queries.Upcoming)

	if len(overduePages) == 0 && len(todayPages) == 0 && len(upcomingPages) == 0 {
		r.diagnose(ctx, req.DatabaseID)
	}
	r.log.Info().
		Int("overdue", len(overduePages)).Int("today", len(todayPages)).Int("upcoming", len(upcomingPages)).
		Msg("tasks fetched (before done filter)")

	n := &normalizer{
		store:  r.store,
		schema: schema,
		loc:    loc,
		areas:  index.NewNameIndex(),
		once:   logging.NewOnce(),
		log:    r.log,
	}
	normalize := func(pages []notion.Page) []model.Task {
		out := make([]model.Task, 0, len(pages))
		for _, p := range pages {
			out = append(out, n.task(ctx, p))
		}
		return out
	}

	b := model.Buckets{
		Overdue:  normalize(overduePages),
		Today:    normalize(todayPages),
		Upcoming: normalize(upcomingPages),
	}
	if lookups, hits := n.areas.Stats(); lookups > 0 {
		r.log.Debug().Int("lookups", lookups).Int("cached", hits).Int("areas", n.areas.Len()).Msg("area relations resolved")
	}

	b = r.dropDone(b)
	b = dedupe(b)
	sortByDue(b.Overdue)
	sortByDue(b.Today)
	sortByDue(b.Upcoming)
	r.checkWindow(window, b)

	r.log.Info().
		Int("overdue", len(b.Overdue)).Int("today", len(b.Today)).Int("upcoming", len(b.Upcoming)).
		Msg("tasks resolved")
	return b, nil
}

// discover builds the schema with at most two reads: the database itself and,
// when it lists no properties, one sampled record.
func (r *Resolver) discover(ctx context.Context, databaseID string) (*Schema, error) {
	db, err := r.store.RetrieveDatabase(ctx, databaseID)
	if err != nil {
		return nil, err
	}

	props := db.Properties
	sampled := false
	if len(props) == 0 {
		r.log.Warn().Msg("database lists no properties, sampling one record")
		resp, err := r.store.QueryDatabase(ctx, databaseID, notion.QueryRequest{PageSize: 1})
		if err != nil {
			r.log.Warn().Err(err).Msg("failed to sample record")
		} else if len(resp.Results) > 0 {
			props = sampleProperties(resp.Results[0])
			sampled = true
		}
	}

	schema := discoverSchema(props, r.opts)
	schema.Sampled = sampled
	return schema, nil
}

// query runs one bucket query. A failure empties only that bucket.
func (r *Resolver) query(ctx context.Context, databaseID string, b overdue.Bucket, req notion.QueryRequest) []notion.Page {
	resp, err := r.store.QueryDatabase(ctx, databaseID, req)
	if err != nil {
		r.log.Error().Err(err).Str("bucket", b.String()).Msg("task query failed")
		return nil
	}
	if resp.HasMore {
		r.log.Warn().Str("bucket", b.String()).Int("page_size", req.PageSize).Msg("more tasks than one page, extra tasks skipped")
	}
	return resp.Results
}

func (r *Resolver) diagnose(ctx context.Context, databaseID string) {
	resp, err := r.store.QueryDatabase(ctx, databaseID, notion.QueryRequest{PageSize: diagnosticSampleSize})
	if err != nil {
		r.log.Debug().Err(err).Msg("diagnostic sample failed")
		return
	}
	var names []string
	if len(resp.Results) > 0 {
		names = sortedNames(resp.Results[0].Properties)
	}
	r.log.Warn().Strs("sample_properties", names).Msg("no tasks matched any filter")
}

// dropDone removes completed tasks that slipped past the query filters.
func (r *Resolver) dropDone(b model.Buckets) model.Buckets {
	keep := func(in []model.Task) ([]model.Task, int) {
		out := in[:0:0]
		for _, t := range in {
			if !t.Done {
				out = append(out, t)
			}
		}
		return out, len(in) - len(out)
	}

	var removedOverdue, removedToday, removedUpcoming int
	b.Overdue, removedOverdue = keep(b.Overdue)
	b.Today, removedToday = keep(b.Today)
	b.Upcoming, removedUpcoming = keep(b.Upcoming)

	if removedOverdue+removedToday+removedUpcoming > 0 {
		r.log.Warn().
			Int("overdue", removedOverdue).Int("today", removedToday).Int("upcoming", removedUpcoming).
			Msg("filtered out done tasks")
	}
	return b
}

// dedupe keeps each task id in the first bucket it appears in, in the order
// overdue, today, upcoming.
func dedupe(b model.Buckets) model.Buckets {
	seen := make(map[string]bool)
	filter := func(in []model.Task) []model.Task {
		out := in[:0:0]
		for _, t := range in {
			if t.ID != "" && seen[t.ID] {
				continue
			}
			seen[t.ID] = true
			out = append(out, t)
		}
		return out
	}
	b.Overdue = filter(b.Overdue)
	b.Today = filter(b.Today)
	b.Upcoming = filter(b.Upcoming)
	return b
}

// sortByDue orders tasks by due ascending with undated tasks last.
func sortByDue(ts []model.Task) {
	sort.SliceStable(ts, func(i, j int) bool {
		a, b := ts[i].Due, ts[j].Due
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
}

func (r *Resolver) checkWindow(w overdue.Window, b model.Buckets) {
	check := func(bucket overdue.Bucket, ts []model.Task) {
		for _, t := range ts {
			if t.Due != nil && !w.Contains(bucket, *t.Due) {
				r.log.Debug().Str("task", t.ID).Str("due", t.DueRaw).Str("bucket", bucket.String()).
					Str("classified", w.Classify(*t.Due).String()).Msg("task due outside its bucket window")
			}
		}
	}
	check(overdue.Overdue, b.Overdue)
	check(overdue.Today, b.Today)
	check(overdue.Upcoming, b.Upcoming)
}
