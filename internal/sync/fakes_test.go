package sync

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/dmitrijs2005/gaiasync/internal/logging"
	"github.com/dmitrijs2005/gaiasync/internal/models"
	"github.com/dmitrijs2005/gaiasync/internal/tap"
)

// recordingLogger captures messages so tests can assert on warnings.
type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Debug(ctx context.Context, msg string, args ...any) {}
func (l *recordingLogger) Info(ctx context.Context, msg string, args ...any)  {}
func (l *recordingLogger) Error(ctx context.Context, msg string, args ...any) {}
func (l *recordingLogger) Warn(ctx context.Context, msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}
func (l *recordingLogger) With(args ...any) logging.Logger { return l }

func (l *recordingLogger) warnings() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.warns...)
}

var (
	topRe   = regexp.MustCompile(`SELECT TOP (\d+) `)
	notInRe = regexp.MustCompile(`NOT IN \(([^)]*)\)`)
)

// fakeRemote serves a fixed dataset sorted by source_id, honouring the TOP
// bound and the exclusion expressed in the query or the upload.
type fakeRemote struct {
	mu       sync.Mutex
	columns  []string
	data     [][]any // sorted by source_id ascending; source_id in column 0
	loggedIn bool

	loginErr    error
	logoutCalls int

	queryErr         error  // returned by every fetch when failOnFetch is 0
	failOnFetch      int    // 1-based fetch number to fail, 0 = per queryErr
	failWhenContains string // only queries containing this substring fail
	fetches      int
	queries      []string
	uploads      []*tap.Upload
	exclAtFetch  []int // exclusion set size observed at each fetch
	seenExcluded bool  // a fetch returned an identifier it was told to exclude
}

func (f *fakeRemote) Login(ctx context.Context, username, password string) error {
	if f.loginErr != nil {
		return f.loginErr
	}
	f.mu.Lock()
	f.loggedIn = true
	f.mu.Unlock()
	return nil
}

func (f *fakeRemote) Logout(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loggedIn = false
	f.logoutCalls++
	return nil
}

func (f *fakeRemote) Authenticated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loggedIn
}

func (f *fakeRemote) Query(ctx context.Context, adql string, upload *tap.Upload) (*tap.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fetches++
	f.queries = append(f.queries, adql)
	f.uploads = append(f.uploads, upload)

	if f.queryErr != nil &&
		(f.failOnFetch == 0 || f.fetches == f.failOnFetch) &&
		(f.failWhenContains == "" || strings.Contains(adql, f.failWhenContains)) {
		return nil, f.queryErr
	}

	excluded := map[int64]struct{}{}
	if upload != nil {
		for _, id := range upload.IDs {
			excluded[id] = struct{}{}
		}
	} else if m := notInRe.FindStringSubmatch(adql); m != nil {
		for _, s := range strings.Split(m[1], ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("bad NOT IN list: %w", err)
			}
			excluded[id] = struct{}{}
		}
	}
	f.exclAtFetch = append(f.exclAtFetch, len(excluded))

	top := 0
	if m := topRe.FindStringSubmatch(adql); m != nil {
		top, _ = strconv.Atoi(m[1])
	}

	var rows [][]any
	for _, row := range f.data {
		if _, skip := excluded[row[0].(int64)]; skip {
			continue
		}
		rows = append(rows, row)
		if top > 0 && len(rows) == top {
			break
		}
	}
	return &tap.Table{Columns: f.columns, Rows: rows}, nil
}

// fakeStore implements RegionStore and RecordStore in memory, keyed the way
// the real repositories are: regions by name, records by (serial, id).
type fakeStore struct {
	mu           sync.Mutex
	nextSerial   int64
	serialByName map[string]int64
	nameBySerial map[int64]string
	rows         map[string]map[int64]struct{} // region name -> known ids

	regionSaves  int
	knownErr     error
	saveBatchErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		serialByName: map[string]int64{},
		nameBySerial: map[int64]string{},
		rows:         map[string]map[int64]struct{}{},
	}
}

func (s *fakeStore) Save(ctx context.Context, region *models.Region) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.regionSaves++
	serial, ok := s.serialByName[region.Name]
	if !ok {
		s.nextSerial++
		serial = s.nextSerial
		s.serialByName[region.Name] = serial
		s.nameBySerial[serial] = region.Name
	}
	region.Serial = &serial
	return serial, nil
}

func (s *fakeStore) SaveBatch(ctx context.Context, regionID int64, columns []string, rows [][]any) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.saveBatchErr != nil {
		return 0, s.saveBatchErr
	}

	idIdx := -1
	for i, col := range columns {
		if col == "source_id" {
			idIdx = i
			break
		}
	}
	if idIdx == -1 {
		return 0, fmt.Errorf("no source_id column")
	}

	name := s.nameBySerial[regionID]
	known := s.rows[name]
	if known == nil {
		known = map[int64]struct{}{}
		s.rows[name] = known
	}

	var inserted int64
	for _, row := range rows {
		id := row[idIdx].(int64)
		if _, dup := known[id]; dup {
			continue
		}
		known[id] = struct{}{}
		inserted++
	}
	return inserted, nil
}

func (s *fakeStore) KnownSourceIDs(ctx context.Context, regionName string) (map[int64]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.knownErr != nil {
		return nil, s.knownErr
	}
	out := map[int64]struct{}{}
	for id := range s.rows[regionName] {
		out[id] = struct{}{}
	}
	return out, nil
}

func (s *fakeStore) recordCount(regionName string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows[regionName])
}

func mustRegion(name string, ra, dec float64, shape models.Shape) models.Region {
	region, err := models.NewRegion(name, ra, dec, shape)
	if err != nil {
		panic(err)
	}
	return region
}

// sourceRows builds a sorted (source_id, ra, dec) dataset of n rows.
func sourceRows(n int) [][]any {
	rows := make([][]any, n)
	for i := range rows {
		rows[i] = []any{int64(100 + i), 56.0 + float64(i)/10, 24.0}
	}
	return rows
}

var testColumns = []string{"source_id", "ra", "dec"}
