package export

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Caia-Tech/ff6-dataset/pkg/dataset"
)

// fakeDB records statements instead of talking to PostgreSQL
type fakeDB struct {
	statements []string
	pageIDs    map[string]int64
	pairs      map[string]bool
	sections   map[int64]int
	commits    int
	rollbacks  int
	failTitle  string
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		pageIDs:  map[string]int64{},
		pairs:    map[string]bool{},
		sections: map[int64]int{},
	}
}

func (db *fakeDB) Begin(ctx context.Context) (pgx.Tx, error) {
	return &fakeTx{db: db}, nil
}

func (db *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	db.statements = append(db.statements, sql)
	return pgconn.NewCommandTag("CREATE TABLE"), nil
}

type fakeTx struct {
	pgx.Tx
	db   *fakeDB
	done bool
}

func (tx *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	tx.db.statements = append(tx.db.statements, sql)
	switch {
	case strings.Contains(sql, "DELETE FROM wiki_sections"):
		tx.db.sections[args[0].(int64)] = 0
	case strings.Contains(sql, "INSERT INTO wiki_sections"):
		tx.db.sections[args[1].(int64)]++
	case strings.Contains(sql, "INSERT INTO training_pairs"):
		id := args[0].(string)
		if tx.db.pairs[id] {
			return pgconn.NewCommandTag("INSERT 0 0"), nil
		}
		tx.db.pairs[id] = true
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (tx *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	title := args[0].(string)
	if title == tx.db.failTitle {
		return fakeRow{err: errors.New("constraint violation")}
	}
	id, ok := tx.db.pageIDs[title]
	if !ok {
		id = int64(len(tx.db.pageIDs) + 1)
		tx.db.pageIDs[title] = id
	}
	return fakeRow{id: id}
}

func (tx *fakeTx) Commit(ctx context.Context) error {
	tx.done = true
	tx.db.commits++
	return nil
}

func (tx *fakeTx) Rollback(ctx context.Context) error {
	if tx.done {
		return pgx.ErrTxClosed
	}
	tx.done = true
	tx.db.rollbacks++
	return nil
}

type fakeRow struct {
	id  int64
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*int64)) = r.id
	return nil
}

func samplePages() []dataset.Page {
	return []dataset.Page{
		{
			Title: "Edgar_Roni_Figaro",
			URL:   "https://finalfantasy.fandom.com/wiki/Edgar_Roni_Figaro",
			Sections: []dataset.Section{
				{Heading: "Introduction", Content: "Edgar is the king of Figaro.", Versions: []dataset.VersionTag{dataset.VersionAll}},
				{Heading: "Gameplay", Content: "Edgar uses Tools.", Versions: []dataset.VersionTag{dataset.VersionSNES, dataset.VersionGBA}},
			},
		},
		{
			Title:    "Figaro_Castle",
			URL:      "https://finalfantasy.fandom.com/wiki/Figaro_Castle",
			Sections: []dataset.Section{{Heading: "Introduction", Content: "A castle that can burrow.", Versions: []dataset.VersionTag{dataset.VersionAll}}},
		},
	}
}

func TestPostgresSink_Export(t *testing.T) {
	db := newFakeDB()
	sink := newPostgresSink(db)

	pairs := []dataset.TrainingPair{
		dataset.NewTrainingPair("Who is Edgar?", "The king of Figaro."),
		dataset.NewTrainingPair("What is Figaro Castle?", "A castle that can burrow."),
	}

	stats, err := sink.Export(context.Background(), samplePages(), pairs)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Pages)
	assert.Equal(t, 3, stats.Sections)
	assert.Equal(t, 2, stats.Pairs)
	assert.Equal(t, 0, stats.Failed)

	assert.Contains(t, db.statements[0], "CREATE TABLE IF NOT EXISTS wiki_pages")
	assert.Equal(t, 2, db.sections[db.pageIDs["Edgar_Roni_Figaro"]])
	assert.Len(t, db.pairs, 2)
	assert.Equal(t, 3, db.commits)
	assert.Equal(t, 0, db.rollbacks)

	// re-export replaces sections instead of adding to them
	again, err := sink.Export(context.Background(), samplePages(), pairs)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Pairs, "stored pairs are skipped and not counted")
	assert.Equal(t, 2, db.sections[db.pageIDs["Edgar_Roni_Figaro"]])
	assert.Len(t, db.pageIDs, 2)
}

func TestPostgresSink_CountsOnlyInsertedPairs(t *testing.T) {
	db := newFakeDB()
	sink := newPostgresSink(db)

	first := []dataset.TrainingPair{dataset.NewTrainingPair("Who is Edgar?", "The king of Figaro.")}
	_, err := sink.SavePairs(context.Background(), first)
	require.NoError(t, err)

	mixed := append(first, dataset.NewTrainingPair("Who is Sabin?", "Edgar's twin."))
	inserted, err := sink.SavePairs(context.Background(), mixed)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
	assert.Len(t, db.pairs, 2)
}

func TestPostgresSink_PageFailureIsCounted(t *testing.T) {
	db := newFakeDB()
	db.failTitle = "Figaro_Castle"
	sink := newPostgresSink(db)

	stats, err := sink.Export(context.Background(), samplePages(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Pages)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, db.rollbacks)
}
