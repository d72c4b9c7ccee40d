package pgstac_test

import (
	"context"
	"errors"
	"testing"

	pgstac "github.com/stac-utils/pgstac-go"
	"github.com/stac-utils/pgstac-go/contrib/testenv"
	"github.com/stac-utils/pgstac-go/pkg/models"
	"github.com/stretchr/testify/suite"
)

// ClientTestSuite runs against a live pgstac database. Each test gets a
// client inside its own transaction, rolled back when the test ends.
type ClientTestSuite struct {
	suite.Suite
	ctx        context.Context
	client     *pgstac.Client
	collection string
}

func TestClientTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping database tests in short mode")
	}
	suite.Run(t, new(ClientTestSuite))
}

func (s *ClientTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.client = testenv.Client(s.T())
	s.collection = testenv.ID("collection")
}

func (s *ClientTestSuite) addCollection() {
	s.Require().NoError(s.client.AddCollection(s.ctx, models.NewCollection(s.collection, "a description")))
}

func (s *ClientTestSuite) item(id string) models.Item {
	item := models.NewItem(id)
	item.Collection = s.collection
	g := models.NewPoint(-105.1019, 40.1672)
	item.Geometry = &g
	return item
}

func (s *ClientTestSuite) TestVersion() {
	version, err := s.client.Version(s.ctx)
	s.Require().NoError(err)
	s.NotEmpty(version)
}

func (s *ClientTestSuite) TestSetting() {
	value, err := s.client.Setting(s.ctx, "context")
	s.Require().NoError(err)
	s.Equal("off", value)
}

func (s *ClientTestSuite) TestCollections() {
	before, err := s.client.Collections(s.ctx)
	s.Require().NoError(err)

	s.addCollection()

	after, err := s.client.Collections(s.ctx)
	s.Require().NoError(err)
	s.Len(after, len(before)+1)
}

func (s *ClientTestSuite) TestAddCollectionDuplicate() {
	s.addCollection()
	err := s.client.AddCollection(s.ctx, models.NewCollection(s.collection, "a description"))
	s.ErrorIs(err, pgstac.ErrConflict)
}

func (s *ClientTestSuite) TestUpsertCollection() {
	collection := models.NewCollection(s.collection, "a description")
	s.Require().NoError(s.client.UpsertCollection(s.ctx, collection))

	collection.Title = "a title"
	s.Require().NoError(s.client.UpsertCollection(s.ctx, collection))

	got, err := s.client.Collection(s.ctx, s.collection)
	s.Require().NoError(err)
	s.Equal("a title", got.Title)
	s.Equal("a description", got.Description)
}

func (s *ClientTestSuite) TestUpdateCollection() {
	s.addCollection()

	got, err := s.client.Collection(s.ctx, s.collection)
	s.Require().NoError(err)
	s.Empty(got.Title)

	got.Title = "a title"
	s.Require().NoError(s.client.UpdateCollection(s.ctx, *got))

	got, err = s.client.Collection(s.ctx, s.collection)
	s.Require().NoError(err)
	s.Equal("a title", got.Title)
}

func (s *ClientTestSuite) TestUpdateCollectionDoesNotExist() {
	err := s.client.UpdateCollection(s.ctx, models.NewCollection(s.collection, "a description"))
	s.ErrorIs(err, pgstac.ErrNotFound)
}

func (s *ClientTestSuite) TestCollectionNotFound() {
	_, err := s.client.Collection(s.ctx, "not-an-id")
	s.ErrorIs(err, pgstac.ErrNotFound)
}

func (s *ClientTestSuite) TestDeleteCollection() {
	s.addCollection()
	_, err := s.client.Collection(s.ctx, s.collection)
	s.Require().NoError(err)

	s.Require().NoError(s.client.DeleteCollection(s.ctx, s.collection))

	_, err = s.client.Collection(s.ctx, s.collection)
	s.ErrorIs(err, pgstac.ErrNotFound)
}

func (s *ClientTestSuite) TestDeleteCollectionDoesNotExist() {
	err := s.client.DeleteCollection(s.ctx, "not-an-id")
	s.ErrorIs(err, pgstac.ErrNotFound)
}

func (s *ClientTestSuite) TestDeleteCollectionWithItems() {
	s.addCollection()
	s.Require().NoError(s.client.AddItem(s.ctx, s.item("an-id")))

	// A savepoint keeps the test transaction usable if the delete is refused.
	err := s.client.WithTx(s.ctx, func(tx *pgstac.Client) error {
		return tx.DeleteCollection(s.ctx, s.collection)
	})
	if err != nil {
		s.ErrorIs(err, pgstac.ErrConflict)
		_, err = s.client.Item(s.ctx, s.collection, "an-id")
		s.NoError(err)
		return
	}
	_, err = s.client.Item(s.ctx, s.collection, "an-id")
	s.ErrorIs(err, pgstac.ErrNotFound)
}

func (s *ClientTestSuite) TestItem() {
	_, err := s.client.Item(s.ctx, s.collection, "an-id")
	s.Require().ErrorIs(err, pgstac.ErrNotFound)

	s.addCollection()
	item := s.item("an-id")
	s.Require().NoError(s.client.AddItem(s.ctx, item))

	got, err := s.client.Item(s.ctx, s.collection, "an-id")
	s.Require().NoError(err)
	s.Equal(item.ID, got.ID)
	s.Equal(item.Collection, got.Collection)
	s.Require().NotNil(got.Geometry)
	position, err := got.Geometry.Position()
	s.Require().NoError(err)
	s.InDeltaSlice([]float64{-105.1019, 40.1672}, position, 1e-9)

	want, err := item.Properties.Datetime()
	s.Require().NoError(err)
	have, err := got.Properties.Datetime()
	s.Require().NoError(err)
	s.Require().NotNil(have)
	s.True(want.Equal(*have))
}

func (s *ClientTestSuite) TestItemWithoutCollection() {
	err := s.client.AddItem(s.ctx, models.NewItem("an-id"))
	s.ErrorIs(err, pgstac.ErrInvalidInput)
}

func (s *ClientTestSuite) TestItemUnknownCollection() {
	err := s.client.AddItem(s.ctx, s.item("an-id"))
	s.ErrorIs(err, pgstac.ErrConflict)
}

func (s *ClientTestSuite) TestUpdateItem() {
	s.addCollection()
	item := s.item("an-id")
	s.Require().NoError(s.client.AddItem(s.ctx, item))

	item.Properties["foo"] = "bar"
	s.Require().NoError(s.client.UpdateItem(s.ctx, item))

	got, err := s.client.Item(s.ctx, s.collection, "an-id")
	s.Require().NoError(err)
	s.Equal("bar", got.Properties["foo"])
}

func (s *ClientTestSuite) TestUpsertItem() {
	s.addCollection()
	item := s.item("an-id")
	s.Require().NoError(s.client.UpsertItem(s.ctx, item))
	s.Require().NoError(s.client.UpsertItem(s.ctx, item))
}

func (s *ClientTestSuite) TestDeleteItem() {
	s.addCollection()
	s.Require().NoError(s.client.AddItem(s.ctx, s.item("an-id")))
	s.Require().NoError(s.client.DeleteItem(s.ctx, s.collection, "an-id"))

	_, err := s.client.Item(s.ctx, s.collection, "an-id")
	s.ErrorIs(err, pgstac.ErrNotFound)
}

func (s *ClientTestSuite) TestAddItems() {
	s.addCollection()
	result, err := s.client.AddItems(s.ctx, []models.Item{s.item("an-id"), s.item("other-id")})
	s.Require().NoError(err)
	s.Len(result.Succeeded(), 2)

	for _, id := range []string{"an-id", "other-id"} {
		_, err := s.client.Item(s.ctx, s.collection, id)
		s.NoError(err, id)
	}
}

func (s *ClientTestSuite) TestUpsertItems() {
	s.addCollection()
	items := []models.Item{s.item("an-id"), s.item("other-id")}

	_, err := s.client.UpsertItems(s.ctx, items)
	s.Require().NoError(err)
	_, err = s.client.UpsertItems(s.ctx, items)
	s.Require().NoError(err)
}

func (s *ClientTestSuite) TestUpsertItemsIsAtomicInTheStore() {
	s.addCollection()
	stray := s.item("stray-id")
	stray.Collection = testenv.ID("missing")

	err := s.client.WithTx(s.ctx, func(tx *pgstac.Client) error {
		_, err := tx.UpsertItems(s.ctx, []models.Item{s.item("an-id"), stray})
		return err
	})
	s.Require().Error(err)

	_, err = s.client.Item(s.ctx, s.collection, "an-id")
	s.ErrorIs(err, pgstac.ErrNotFound)
}

func (s *ClientTestSuite) TestSearchEverything() {
	s.addCollection()
	s.Require().NoError(s.client.AddItem(s.ctx, s.item("an-id")))

	page, err := s.client.Search(s.ctx, pgstac.Search{Collections: []string{s.collection}})
	s.Require().NoError(err)
	s.Require().Len(page.Features, 1)
	s.Equal("an-id", page.Features[0].ID)
}

func (s *ClientTestSuite) TestSearchByID() {
	s.addCollection()
	s.Require().NoError(s.client.AddItem(s.ctx, s.item("an-id")))

	page, err := s.client.Search(s.ctx, pgstac.Search{Collections: []string{s.collection}, IDs: []string{"an-id"}})
	s.Require().NoError(err)
	s.Require().Len(page.Features, 1)
	s.Equal("an-id", page.Features[0].ID)

	page, err = s.client.Search(s.ctx, pgstac.Search{Collections: []string{s.collection}, IDs: []string{"not-an-id"}})
	s.Require().NoError(err)
	s.Empty(page.Features)
}

func (s *ClientTestSuite) TestSearchLimit() {
	s.addCollection()
	_, err := s.client.AddItems(s.ctx, []models.Item{s.item("an-id"), s.item("another-id")})
	s.Require().NoError(err)

	page, err := s.client.Search(s.ctx, pgstac.Search{Collections: []string{s.collection}, Limit: 1})
	s.Require().NoError(err)
	s.Len(page.Features, 1)
	s.True(page.HasNext())
}

func (s *ClientTestSuite) TestSearchPages() {
	s.addCollection()
	_, err := s.client.AddItems(s.ctx, []models.Item{s.item("a"), s.item("b"), s.item("c")})
	s.Require().NoError(err)

	seen := map[string]int{}
	err = s.client.SearchPages(s.ctx, pgstac.Search{Collections: []string{s.collection}, Limit: 1}, func(p *pgstac.Page) error {
		s.LessOrEqual(len(p.Features), 1)
		for _, item := range p.Features {
			seen[item.ID]++
		}
		return nil
	})
	s.Require().NoError(err)
	s.Equal(map[string]int{"a": 1, "b": 1, "c": 1}, seen)
}

func (s *ClientTestSuite) TestSearchBbox() {
	s.addCollection()
	s.Require().NoError(s.client.AddItem(s.ctx, s.item("an-id")))

	page, err := s.client.Search(s.ctx, pgstac.Search{Collections: []string{s.collection}, Bbox: models.Bbox{-106, 40, -105, 41}})
	s.Require().NoError(err)
	s.Len(page.Features, 1)

	page, err = s.client.Search(s.ctx, pgstac.Search{Collections: []string{s.collection}, Bbox: models.Bbox{0, 0, 1, 1}})
	s.Require().NoError(err)
	s.Empty(page.Features)
}

// Transactions on the pool itself commit for real, so they use ids unique to
// the run and clean up after themselves.
type TxTestSuite struct {
	suite.Suite
	ctx context.Context
	db  *pgstac.Client
}

func TestTxTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping database tests in short mode")
	}
	suite.Run(t, new(TxTestSuite))
}

func (s *TxTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = pgstac.New(testenv.Pool(s.T()), pgstac.WithLogger(testenv.Logger(s.T())))
}

func (s *TxTestSuite) TestRollbackIsInvisible() {
	id := testenv.ID("rollback")
	failure := errors.New("abort")

	err := s.db.WithTx(s.ctx, func(tx *pgstac.Client) error {
		if err := tx.AddCollection(s.ctx, models.NewCollection(id, "a description")); err != nil {
			return err
		}
		if _, err := tx.Collection(s.ctx, id); err != nil {
			return err
		}
		return failure
	})
	s.Require().ErrorIs(err, failure)

	_, err = s.db.Collection(s.ctx, id)
	s.ErrorIs(err, pgstac.ErrNotFound)
}

func (s *TxTestSuite) TestCommitIsVisible() {
	id := testenv.ID("commit")
	s.T().Cleanup(func() {
		_ = s.db.DeleteCollection(context.Background(), id)
	})

	err := s.db.WithTx(s.ctx, func(tx *pgstac.Client) error {
		return tx.AddCollection(s.ctx, models.NewCollection(id, "a description"))
	})
	s.Require().NoError(err)

	got, err := s.db.Collection(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(id, got.ID)
}

func (s *TxTestSuite) TestCancelled() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	_, err := s.db.Version(ctx)
	s.ErrorIs(err, pgstac.ErrCancelled)
	s.ErrorIs(err, pgstac.ErrTransport)
}
