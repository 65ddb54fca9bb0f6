package pipeline

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/transcompare/internal/a1"
	"github.com/valpere/transcompare/internal/jobs"
)

func newPipeline(t *testing.T, store *fakeStore, capability *fakeCapability) *Pipeline {
	t.Helper()
	p, err := New(Config{Store: store, Capability: capability})
	require.NoError(t, err)
	return p
}

func baseRequest() Request {
	return Request{
		SpreadsheetID: "sid",
		GID:           42,
		SourceColumn:  "A",
		NotesColumn:   "B",
		StartRow:      2,
		EndRow:        2,
		SourceLang:    "en",
		TargetLang:    "fr",
		Translators:   []Translator{{Provider: "A", Instructions: "formal"}},
	}
}

func TestDetectWindow_StopsAtFirstGap(t *testing.T) {
	store := newFakeStore(map[int][]string{5: {"a"}, 6: {"b"}, 7: {""}, 8: {"c"}})

	w, err := DetectWindow(context.Background(), store, "sid", "Data", "A", 5, 0)
	require.NoError(t, err)
	assert.Equal(t, a1.RowWindow{Start: 5, End: 6}, w)
}

func TestDetectWindow_WhitespaceIsBlank(t *testing.T) {
	store := newFakeStore(map[int][]string{5: {"a"}, 6: {"  \t"}, 7: {"c"}})

	w, err := DetectWindow(context.Background(), store, "sid", "Data", "A", 5, 0)
	require.NoError(t, err)
	assert.Equal(t, a1.RowWindow{Start: 5, End: 5}, w)
}

func TestDetectWindow_BlankFirstCell(t *testing.T) {
	store := newFakeStore(map[int][]string{6: {"b"}})

	w, err := DetectWindow(context.Background(), store, "sid", "Data", "A", 5, 0)
	require.NoError(t, err)
	assert.Equal(t, a1.RowWindow{Start: 5, End: 5}, w)

	w, err = DetectWindow(context.Background(), store, "sid", "Data", "A", 50, 0)
	require.NoError(t, err)
	assert.Equal(t, a1.RowWindow{Start: 50, End: 50}, w)
}

func TestDetectWindow_ExplicitEndSkipsFetch(t *testing.T) {
	store := newFakeStore(map[int][]string{5: {"a"}})

	w, err := DetectWindow(context.Background(), store, "sid", "Data", "A", 5, 9)
	require.NoError(t, err)
	assert.Equal(t, a1.RowWindow{Start: 5, End: 9}, w)
	assert.Empty(t, store.columnReads)
}

func TestDetectWindow_TransportFailure(t *testing.T) {
	store := newFakeStore(nil)
	store.readErr = errors.New("permission denied")

	_, err := DetectWindow(context.Background(), store, "sid", "Data", "A", 5, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransportFailure))
	assert.Contains(t, err.Error(), "'Data'!A5:A")
	assert.Contains(t, err.Error(), "permission denied")
}

func TestProject(t *testing.T) {
	rows := [][]string{{"Hello", "", "greeting"}, {"Bye"}, {}}

	cols, err := a1.ResolveColumns("B", "D")
	require.NoError(t, err)
	got := Project(rows, cols)
	require.Len(t, got, 3)
	assert.Equal(t, "Hello", got[0].Source)
	assert.Equal(t, "greeting", *got[0].Notes)
	assert.Equal(t, "Bye", got[1].Source)
	require.NotNil(t, got[1].Notes)
	assert.Equal(t, "", *got[1].Notes)
	assert.Equal(t, 2, got[2].Index)
	assert.Equal(t, "", got[2].Source)

	noNotes, err := a1.ResolveColumns("B", "")
	require.NoError(t, err)
	for _, r := range Project(rows, noNotes) {
		assert.Nil(t, r.Notes)
	}

	// Notes left of source.
	reversed, err := a1.ResolveColumns("D", "B")
	require.NoError(t, err)
	got = Project([][]string{{"note", "", "text"}}, reversed)
	assert.Equal(t, "text", got[0].Source)
	assert.Equal(t, "note", *got[0].Notes)

	same, err := a1.ResolveColumns("C", "c")
	require.NoError(t, err)
	got = Project([][]string{{"both"}}, same)
	assert.Equal(t, "both", got[0].Source)
	assert.Equal(t, "both", *got[0].Notes)
}

func TestRun_EndToEnd(t *testing.T) {
	store := newFakeStore(map[int][]string{2: {"Hello", "greeting"}})
	capability := &fakeCapability{translate: map[string]func([]jobs.Unit) ([]string, error){
		"A": fixed("Bonjour"),
	}}

	res, err := newPipeline(t, store, capability).Run(context.Background(), baseRequest())
	require.NoError(t, err)

	assert.Equal(t, Matrix{
		{"Source Text", "Notes", "A-1"},
		{"", "", "formal"},
		{"Hello", "greeting", "Bonjour"},
	}, res.Matrix)
	assert.Equal(t, "Data", res.Title)
	assert.Equal(t, []string{"'Data'!A2:B2"}, store.rangeReads)

	require.Len(t, capability.batches, 1)
	b := capability.batches[0]
	assert.Equal(t, "formal", b.Instructions)
	assert.Equal(t, "en", b.SourceLang)
	assert.Equal(t, "fr", b.TargetLang)
	assert.Equal(t, []jobs.Unit{{Index: 0, Source: "Hello", Notes: "greeting"}}, b.Units)
}

func TestRun_AutoDetectedWindow(t *testing.T) {
	store := newFakeStore(map[int][]string{
		5: {"a", "n1"}, 6: {"b"}, 7: {""}, 8: {"c"},
	})
	capability := &fakeCapability{translate: map[string]func([]jobs.Unit) ([]string, error){
		"A": prefixer("fr:"),
	}}
	req := baseRequest()
	req.StartRow, req.EndRow = 5, 0

	res, err := newPipeline(t, store, capability).Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, a1.RowWindow{Start: 5, End: 6}, res.Window)
	assert.Equal(t, Matrix{
		{"Source Text", "Notes", "A-1"},
		{"", "", "formal"},
		{"a", "n1", "fr:a"},
		{"b", "", "fr:b"},
	}, res.Matrix)
}

func TestRun_DetectsOnResolvedColumn(t *testing.T) {
	store := newFakeStore(map[int][]string{
		2: {"n1", "", "a"}, 3: {"n2", "", "b"},
	})
	capability := &fakeCapability{translate: map[string]func([]jobs.Unit) ([]string, error){
		"A": prefixer("fr:"),
	}}
	req := baseRequest()
	req.SourceColumn, req.NotesColumn = "c", "a"
	req.EndRow = 0

	res, err := newPipeline(t, store, capability).Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, []string{"C"}, store.columnReads)
	assert.Equal(t, a1.RowWindow{Start: 2, End: 3}, res.Window)
	assert.Equal(t, []string{"a", "n1", "fr:a"}, res.Matrix[2])
}

func TestRun_RejectedSlotIsIsolated(t *testing.T) {
	store := newFakeStore(map[int][]string{2: {"one"}, 3: {"two"}})
	capability := &fakeCapability{translate: map[string]func([]jobs.Unit) ([]string, error){
		"good": prefixer("+"),
	}}
	req := baseRequest()
	req.NotesColumn = ""
	req.EndRow = 3
	req.Translators = []Translator{
		{Provider: "good", Instructions: "x"},
		{Provider: "missing", Instructions: "y"},
		{Provider: "good", Instructions: "z"},
	}

	res, err := newPipeline(t, store, capability).Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, Matrix{
		{"Source Text", "good-1", "missing-2", "good-3"},
		{"", "x", "y", "z"},
		{"one", "+one", PlaceholderProviderFailed, "+one"},
		{"two", "+two", PlaceholderProviderFailed, "+two"},
	}, res.Matrix)

	require.Len(t, res.Slots, 3)
	assert.True(t, res.Slots[1].Failed)
	assert.True(t, errors.Is(res.Slots[1].Err, ErrProviderDispatchFailed))
	assert.False(t, res.Slots[0].Failed)
}

func TestRun_MisassignedJobFailsSlot(t *testing.T) {
	store := newFakeStore(map[int][]string{2: {"one"}})
	capability := &fakeCapability{
		translate: map[string]func([]jobs.Unit) ([]string, error){"A": prefixer("+")},
		misassign: "B",
	}

	res, err := newPipeline(t, store, capability).Run(context.Background(), baseRequest())
	require.NoError(t, err)
	assert.Equal(t, PlaceholderProviderFailed, res.Matrix[2][2])
}

func TestRun_FailedJobFailsSlot(t *testing.T) {
	store := newFakeStore(map[int][]string{2: {"one"}})
	capability := &fakeCapability{translate: map[string]func([]jobs.Unit) ([]string, error){
		"A": func([]jobs.Unit) ([]string, error) { return nil, errors.New("quota exceeded") },
		"B": prefixer("+"),
	}}
	req := baseRequest()
	req.Translators = []Translator{{Provider: "A"}, {Provider: "B"}}

	res, err := newPipeline(t, store, capability).Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "", PlaceholderProviderFailed, "+one"}, res.Matrix[2])
	assert.Equal(t, jobs.StatusFailed, res.Slots[0].Job.Status)
}

func TestRun_ShortResultMarksMissingRows(t *testing.T) {
	store := newFakeStore(map[int][]string{2: {"one"}, 3: {"two"}, 4: {"three"}})
	capability := &fakeCapability{translate: map[string]func([]jobs.Unit) ([]string, error){
		"A": fixed("un", "deux"),
	}}
	req := baseRequest()
	req.NotesColumn = ""
	req.EndRow = 4

	res, err := newPipeline(t, store, capability).Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "un"}, res.Matrix[2])
	assert.Equal(t, []string{"two", "deux"}, res.Matrix[3])
	assert.Equal(t, []string{"three", PlaceholderMissing}, res.Matrix[4])
}

func TestRun_LongResultFailsSlot(t *testing.T) {
	store := newFakeStore(map[int][]string{2: {"one"}})
	capability := &fakeCapability{translate: map[string]func([]jobs.Unit) ([]string, error){
		"A": fixed("un", "deux"),
	}}

	res, err := newPipeline(t, store, capability).Run(context.Background(), baseRequest())
	require.NoError(t, err)
	assert.True(t, res.Slots[0].Failed)
	assert.Equal(t, PlaceholderProviderFailed, res.Matrix[2][2])
}

func TestRun_SlotsKeepRequestOrder(t *testing.T) {
	store := newFakeStore(map[int][]string{2: {"x"}})
	capability := &fakeCapability{
		translate: map[string]func([]jobs.Unit) ([]string, error){
			"slow": prefixer("slow:"),
			"mid":  prefixer("mid:"),
			"fast": prefixer("fast:"),
		},
		delay: map[string]time.Duration{"slow": 40 * time.Millisecond, "mid": 20 * time.Millisecond},
	}
	req := baseRequest()
	req.NotesColumn = ""
	req.Translators = []Translator{{Provider: "slow"}, {Provider: "mid"}, {Provider: "fast"}}

	p, err := New(Config{Store: store, Capability: capability, Concurrency: 2})
	require.NoError(t, err)
	res, err := p.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, []string{"Source Text", "slow-1", "mid-2", "fast-3"}, res.Matrix[0])
	assert.Equal(t, []string{"x", "slow:x", "mid:x", "fast:x"}, res.Matrix[2])
}

func TestRun_RowsMatchHeaderWidth(t *testing.T) {
	store := newFakeStore(map[int][]string{
		2: {"a", "", "n"}, 3: {"b"}, 4: {"", "", "only notes"}, 5: {"d", "x", "y"},
	})
	capability := &fakeCapability{translate: map[string]func([]jobs.Unit) ([]string, error){
		"A": prefixer("1"),
		"B": fixed("only"),
	}}
	req := baseRequest()
	req.NotesColumn = "C"
	req.EndRow = 6
	req.Translators = []Translator{{Provider: "A"}, {Provider: "B"}, {Provider: "C"}}

	res, err := newPipeline(t, store, capability).Run(context.Background(), req)
	require.NoError(t, err)

	width := res.Matrix.Width()
	assert.Equal(t, 5, width)
	for i, row := range res.Matrix {
		assert.Len(t, row, width, "row %d", i)
	}
}

func TestRun_EmptyWindowIsNoDataFound(t *testing.T) {
	store := newFakeStore(map[int][]string{9: {"later"}})
	capability := &fakeCapability{translate: map[string]func([]jobs.Unit) ([]string, error){"A": prefixer("")}}
	req := baseRequest()
	req.StartRow, req.EndRow = 5, 0

	_, err := newPipeline(t, store, capability).Run(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoDataFound))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(err))
	assert.Equal(t, 0, capability.submitted())
}

func TestRun_StructuralErrorsStopBeforeDispatch(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Request, *fakeStore)
		want   error
		status int
	}{
		{
			name:   "invalid source column",
			mutate: func(r *Request, _ *fakeStore) { r.SourceColumn = "A1" },
			want:   ErrInvalidColumnFormat,
			status: http.StatusBadRequest,
		},
		{
			name:   "column label too long",
			mutate: func(r *Request, _ *fakeStore) { r.SourceColumn = "ZZZZZZZZZZZZZZ" },
			want:   ErrInvalidColumnFormat,
			status: http.StatusBadRequest,
		},
		{
			name:   "invalid notes column",
			mutate: func(r *Request, _ *fakeStore) { r.NotesColumn = "-" },
			want:   ErrInvalidColumnFormat,
			status: http.StatusBadRequest,
		},
		{
			name:   "unknown gid",
			mutate: func(r *Request, _ *fakeStore) { r.GID = 7 },
			want:   ErrSheetNotFound,
			status: http.StatusNotFound,
		},
		{
			name:   "storage failure",
			mutate: func(_ *Request, s *fakeStore) { s.readErr = errors.New("network down") },
			want:   ErrTransportFailure,
			status: http.StatusBadGateway,
		},
		{
			name:   "title lookup failure",
			mutate: func(_ *Request, s *fakeStore) { s.titleErr = errors.New("403") },
			want:   ErrTransportFailure,
			status: http.StatusBadGateway,
		},
		{
			name:   "start row zero",
			mutate: func(r *Request, _ *fakeStore) { r.StartRow = 0 },
			want:   ErrInvalidRequest,
			status: http.StatusBadRequest,
		},
		{
			name:   "end before start",
			mutate: func(r *Request, _ *fakeStore) { r.StartRow, r.EndRow = 5, 3 },
			want:   ErrInvalidRequest,
			status: http.StatusBadRequest,
		},
		{
			name:   "no translators",
			mutate: func(r *Request, _ *fakeStore) { r.Translators = nil },
			want:   ErrInvalidRequest,
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore(map[int][]string{2: {"Hello", "greeting"}})
			capability := &fakeCapability{translate: map[string]func([]jobs.Unit) ([]string, error){"A": prefixer("")}}
			req := baseRequest()
			tt.mutate(&req, store)

			_, err := newPipeline(t, store, capability).Run(context.Background(), req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Equal(t, tt.status, HTTPStatus(err))
			assert.Equal(t, 0, capability.submitted())
		})
	}
}

func TestRun_TransportFailureCarriesRange(t *testing.T) {
	store := newFakeStore(map[int][]string{2: {"Hello"}})
	store.readErr = errors.New("boom")
	capability := &fakeCapability{}

	_, err := newPipeline(t, store, capability).Run(context.Background(), baseRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sheet sid")
	assert.Contains(t, err.Error(), "'Data'!A2:B2")
}

func TestRun_AutoSourceLanguage(t *testing.T) {
	store := newFakeStore(map[int][]string{2: {"Bonjour"}, 3: {""}, 4: {"Merci"}})
	capability := &fakeCapability{translate: map[string]func([]jobs.Unit) ([]string, error){"A": prefixer("")}}
	det := &fixedDetector{code: "FR"}
	req := baseRequest()
	req.EndRow = 4
	req.SourceLang = "auto"

	p, err := New(Config{Store: store, Capability: capability, Detector: det})
	require.NoError(t, err)
	res, err := p.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "fr", res.SourceLang)
	assert.Equal(t, "Bonjour\nMerci", det.seen)
	assert.Equal(t, "fr", capability.batches[0].SourceLang)
}

func TestRun_AutoSourceLanguageUndetected(t *testing.T) {
	store := newFakeStore(map[int][]string{2: {"?"}})
	capability := &fakeCapability{translate: map[string]func([]jobs.Unit) ([]string, error){"A": prefixer("")}}
	req := baseRequest()
	req.SourceLang = "auto"

	p, err := New(Config{Store: store, Capability: capability, Detector: &fixedDetector{}})
	require.NoError(t, err)
	res, err := p.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "auto", res.SourceLang)
}

func TestBuildMatrix_NoTranslatorsOutput(t *testing.T) {
	notes := "n"
	m := BuildMatrix([]SourceRow{{Index: 0, Source: "s", Notes: &notes}}, true, nil)
	assert.Equal(t, Matrix{{"Source Text", "Notes"}, {"", ""}, {"s", "n"}}, m)
}

func TestError_Format(t *testing.T) {
	err := newError(KindTransportFailure, "read rows", errors.New("eof"), "sheet %s", "sid")
	assert.Equal(t, "read rows: TransportFailure: sheet sid: eof", err.Error())
	assert.Equal(t, KindTransportFailure, KindOf(err))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("plain")))
}
