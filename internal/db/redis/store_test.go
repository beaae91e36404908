package redis

import (
	"context"
	"errors"
	"math"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/riahunter/internal/db"
)

func isDBError(err error) bool {
	var dbErr *db.Error
	return errors.As(err, &dbErr)
}

// argAfter returns the argument following flag in cmd, or "".
func argAfter(cmd []string, flag string) string {
	i := slices.Index(cmd, flag)
	if i < 0 || i+1 >= len(cmd) {
		return ""
	}
	return cmd[i+1]
}

// --- client.go tests ---

func TestPing_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestWaitForReady_Timeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(errors.New("connection refused"))).
		AnyTimes()

	s := NewStoreForTest(c)
	if err := s.WaitForReady(context.Background(), 250*time.Millisecond); err == nil {
		t.Fatal("expected timeout error")
	}
}

// --- hash.go tests ---

func TestHSetMulti_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisInt64(2)),
			mock.Result(mock.RedisInt64(2)),
		})

	s := NewStoreForTest(c)
	err := s.HSetMulti(context.Background(), []db.HashSetItem{
		{Key: "k1", Fields: map[string]string{"f1": "v1"}},
		{Key: "k2", Fields: map[string]string{"f2": "v2"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHSetMulti_PartialFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisInt64(2)),
			mock.ErrorResult(errors.New("OOM")),
		})

	s := NewStoreForTest(c)
	err := s.HSetMulti(context.Background(), []db.HashSetItem{
		{Key: "k1", Fields: map[string]string{"f": "v"}},
		{Key: "k2", Fields: map[string]string{"f": "v"}},
	})
	if !isDBError(err) || !strings.Contains(err.Error(), "k2") {
		t.Fatalf("err = %v, want db.Error naming k2", err)
	}
}

func TestHSetMulti_Empty(t *testing.T) {
	s := NewStoreForTest(nil)
	if err := s.HSetMulti(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHGetAll_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("HGETALL", "mykey")).
		Return(mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{
			"f1": mock.RedisString("v1"),
		})))

	s := NewStoreForTest(c)
	m, err := s.HGetAll(context.Background(), "mykey")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m["f1"] != "v1" {
		t.Errorf("m = %v", m)
	}
}

func TestHGetAll_Missing(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("HGETALL", "gone")).
		Return(mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{})))

	s := NewStoreForTest(c)
	if _, err := s.HGetAll(context.Background(), "gone"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("err = %v, want ErrKeyNotFound", err)
	}
}

func TestHGetAllMulti_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{"f": mock.RedisString("a")})),
			mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{})),
		})

	s := NewStoreForTest(c)
	results, err := s.HGetAllMulti(context.Background(), []string{"k1", "k2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 || results[0]["f"] != "a" || len(results[1]) != 0 {
		t.Errorf("results = %v", results)
	}
}

func TestDel_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("DEL", "k")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	if err := s.Del(context.Background(), "k"); !isDBError(err) {
		t.Fatalf("err = %v, want db.Error", err)
	}
}

// --- kv.go tests ---

func TestGet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "k")).
		Return(mock.Result(mock.RedisString("payload")))

	s := NewStoreForTest(c)
	v, err := s.Get(context.Background(), "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(v) != "payload" {
		t.Errorf("value = %q", v)
	}
}

func TestGet_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "k")).
		Return(mock.Result(mock.RedisNil()))

	s := NewStoreForTest(c)
	if _, err := s.Get(context.Background(), "k"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("err = %v, want ErrKeyNotFound", err)
	}
}

func TestSetWithTTL(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "k", "v", "EX", "60")).
		Return(mock.Result(mock.RedisString("OK")))
	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "k", "v")).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c)
	if err := s.SetWithTTL(context.Background(), "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("with ttl: %v", err)
	}
	if err := s.SetWithTTL(context.Background(), "k", []byte("v"), 0); err != nil {
		t.Fatalf("without ttl: %v", err)
	}
}

// --- index.go tests ---

func testIndex(t *testing.T) *db.IndexDefinition {
	t.Helper()
	def, err := db.NewIndex("idx").
		Prefix("riahunter:adviser:").
		Tag("state").
		Numeric("aum").
		Text("content", 2).
		Vector("vector", 4, db.VectorHNSW, db.DistanceCosine).
		Build()
	if err != nil {
		t.Fatalf("build index: %v", err)
	}
	return def
}

func TestBuildCreateArgs(t *testing.T) {
	args, err := buildCreateArgs(testIndex(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "idx ON HASH PREFIX 1 riahunter:adviser: SCHEMA state TAG aum NUMERIC content TEXT WEIGHT 2 " +
		"vector VECTOR HNSW 6 TYPE FLOAT32 DIM 4 DISTANCE_METRIC COSINE"
	if got := strings.Join(args, " "); got != want {
		t.Errorf("args = %q\nwant   %q", got, want)
	}
}

func TestBuildCreateArgs_Invalid(t *testing.T) {
	if _, err := buildCreateArgs(nil); err == nil {
		t.Error("expected error for nil definition")
	}
	if _, err := buildCreateArgs(&db.IndexDefinition{Name: "idx"}); err == nil {
		t.Error("expected error for no fields")
	}
}

func TestCreateIndex_AlreadyExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "FT.CREATE" })).
		Return(mock.Result(mock.RedisError("Index already exists")))

	s := NewStoreForTest(c)
	if err := s.CreateIndex(context.Background(), testIndex(t)); !errors.Is(err, db.ErrIndexExists) {
		t.Fatalf("err = %v, want ErrIndexExists", err)
	}
}

func TestDropIndex_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.DROPINDEX", "idx")).
		Return(mock.Result(mock.RedisError("Unknown Index name")))

	s := NewStoreForTest(c)
	if err := s.DropIndex(context.Background(), "idx"); !errors.Is(err, db.ErrIndexNotFound) {
		t.Fatalf("err = %v, want ErrIndexNotFound", err)
	}
}

func TestIndexExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.INFO", "present")).
		Return(mock.Result(mock.RedisArray(mock.RedisString("index_name"), mock.RedisString("present"))))
	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.INFO", "absent")).
		Return(mock.Result(mock.RedisError("Unknown index name")))
	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.INFO", "broken")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	ctx := context.Background()
	if ok, err := s.IndexExists(ctx, "present"); err != nil || !ok {
		t.Errorf("present = %v, %v", ok, err)
	}
	if ok, err := s.IndexExists(ctx, "absent"); err != nil || ok {
		t.Errorf("absent = %v, %v", ok, err)
	}
	if _, err := s.IndexExists(ctx, "broken"); !isDBError(err) {
		t.Errorf("broken err = %v, want db.Error", err)
	}
}

// --- search.go tests ---

func TestSearchKNN_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var sent []string
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			sent = cmd
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(1),
			mock.RedisString("riahunter:adviser:7"),
			mock.RedisArray(
				mock.RedisString("entity_id"), mock.RedisString("7"),
				mock.RedisString("__vector_score"), mock.RedisString("0.25"),
			),
		)))

	s := NewStoreForTest(c)
	res, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName:    "idx",
		VectorField:  "vector",
		Where:        db.Predicate{Tags: []db.TagCondition{{Field: "state", Value: "MO"}}},
		Vector:       []float32{0.1, 0.2},
		K:            25,
		ReturnFields: []string{"entity_id"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != 1 || res.Entries[0].Fields["entity_id"] != "7" {
		t.Fatalf("entries = %+v", res.Entries)
	}
	if math.Abs(res.Entries[0].Score-0.75) > 1e-9 {
		t.Errorf("score = %v, want 0.75 (1 - distance)", res.Entries[0].Score)
	}
	if _, ok := res.Entries[0].Fields["__vector_score"]; ok {
		t.Error("score field leaked into Fields")
	}

	if sent[2] != "(@state:{MO})=>[KNN 25 @vector $BLOB AS __vector_score]" {
		t.Errorf("query = %q", sent[2])
	}
	if argAfter(sent, "LIMIT") != "0" || argAfter(sent, "SORTBY") != "__vector_score" {
		t.Errorf("cmd = %v", sent)
	}
	if argAfter(sent, "BLOB") != db.EncodeVector([]float32{0.1, 0.2}) {
		t.Error("BLOB param mismatch")
	}
	if argAfter(sent, "RETURN") != "2" {
		t.Errorf("RETURN count = %q, want 2", argAfter(sent, "RETURN"))
	}
}

func TestSearchKNN_Validation(t *testing.T) {
	s := NewStoreForTest(nil)
	ctx := context.Background()
	bad := []*db.KNNQuery{
		{VectorField: "vector", Vector: []float32{1}, K: 1},
		{IndexName: "idx", VectorField: "vector", K: 1},
		{IndexName: "idx", VectorField: "vector", Vector: []float32{1}},
	}
	for i, q := range bad {
		if _, err := s.SearchKNN(ctx, q); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}

func TestSearchText_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var sent []string
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			sent = cmd
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(2),
			mock.RedisString("riahunter:adviser:1"),
			mock.RedisString("3.5"),
			mock.RedisArray(mock.RedisString("entity_id"), mock.RedisString("1")),
			mock.RedisString("riahunter:adviser:2"),
			mock.RedisString("1.25"),
			mock.RedisArray(mock.RedisString("entity_id"), mock.RedisString("2")),
		)))

	s := NewStoreForTest(c)
	res, err := s.SearchText(context.Background(), &db.TextQuery{
		IndexName: "idx",
		TextField: "content",
		Where:     db.Predicate{Ranges: []db.RangeCondition{db.AtLeast("aum", 1e6)}},
		Query:     "saint louis wealth-partners",
		Limit:     10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != 2 || res.Entries[0].Score != 3.5 || res.Entries[1].Fields["entity_id"] != "2" {
		t.Fatalf("entries = %+v", res.Entries)
	}
	want := `@aum:[1000000 +inf] @content:(saint|louis|wealth\-partners)`
	if sent[2] != want {
		t.Errorf("query = %q, want %q", sent[2], want)
	}
	if argAfter(sent, "SCORER") != "BM25" {
		t.Errorf("cmd = %v", sent)
	}
}

func TestSearchText_EmptyQuery(t *testing.T) {
	s := NewStoreForTest(nil)
	_, err := s.SearchText(context.Background(), &db.TextQuery{IndexName: "idx", TextField: "content", Query: "  ", Limit: 5})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestSearchList_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.SEARCH", "idx", "*", "LIMIT", "100", "50", "DIALECT", "2")).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(151),
			mock.RedisString("riahunter:adviser:3"),
			mock.RedisArray(mock.RedisString("name"), mock.RedisString("Acme")),
		)))

	s := NewStoreForTest(c)
	res, err := s.SearchList(context.Background(), &db.ListQuery{IndexName: "idx", Offset: 100, Limit: 50})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 151 || res.Entries[0].Fields["name"] != "Acme" {
		t.Errorf("res = %+v", res)
	}
}

func TestSearchList_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "FT.SEARCH" })).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	_, err := s.SearchList(context.Background(), &db.ListQuery{IndexName: "idx", Limit: 1})
	if !isDBError(err) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}
}

func TestBuildPredicate(t *testing.T) {
	tests := []struct {
		name string
		p    db.Predicate
		want string
	}{
		{"empty", db.Predicate{}, ""},
		{"tag", db.Predicate{Tags: []db.TagCondition{{Field: "state", Value: "MO"}}}, "@state:{MO}"},
		{"tag escaped", db.Predicate{Tags: []db.TagCondition{{Field: "city", Value: "st. louis"}}}, `@city:{st\.\ louis}`},
		{"bounded", db.Predicate{Ranges: []db.RangeCondition{{Field: "aum", Min: 1.5, Max: 10}}}, "@aum:[1.5 10]"},
		{"open low", db.Predicate{Ranges: []db.RangeCondition{{Field: "aum", Min: math.Inf(-1), Max: 3}}}, "@aum:[-inf 3]"},
		{
			"combined",
			db.Predicate{
				Tags:   []db.TagCondition{{Field: "state", Value: "KS"}},
				Ranges: []db.RangeCondition{db.AtLeast("aum", 100), db.AtLeast("fund_count", 2)},
			},
			"@state:{KS} @aum:[100 +inf] @fund_count:[2 +inf]",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := buildPredicate(tc.p); got != tc.want {
				t.Errorf("buildPredicate() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestEscapeQuery(t *testing.T) {
	if got := escapeQuery("a-b@c"); got != `a\-b\@c` {
		t.Errorf("escapeQuery = %q", got)
	}
}
