// file: internal/storage/cloud.go
// version: 1.1.0
// guid: 3c45ba86-5cb1-4db7-a5f8-5b9aceb3e68a

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/jdfalk/libshelf/internal/cache"
	"github.com/jdfalk/libshelf/internal/metrics"
	"github.com/jdfalk/libshelf/internal/models"
)

// CloudStore implements Store on a MongoDB database.
//
// Collections:
// - libraries  {_id: owner id, LibraryInfo fields}
// - books      {_id: ObjectID hex, owner_id, Book fields}, index {owner_id: 1, created_at: -1}
// - users      {_id: library id, LibraryRegistryEntry fields}
// - likes      {_id: viewer id, book_ids: []}
// - principals {_id: principal id, anonymous, last_seen}
type CloudStore struct {
	client    *mongo.Client
	db        *mongo.Database
	opTimeout time.Duration
	registry  *cache.Cache[[]models.LibraryRegistryEntry]
	now       func() time.Time
}

// CloudOptions configures the cloud connection.
type CloudOptions struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	OpTimeout      time.Duration
	RegistryTTL    time.Duration
}

const registryCacheKey = "users"

// bookDoc is the stored form of a book: the book plus its owner.
type bookDoc struct {
	models.Book `bson:",inline"`
	OwnerID     string `bson:"owner_id"`
}

type likeDoc struct {
	ID      string   `bson:"_id"`
	BookIDs []string `bson:"book_ids"`
}

// NewCloudStore connects and pings within opts.ConnectTimeout. It fails
// when the database is unreachable.
func NewCloudStore(ctx context.Context, opts CloudOptions) (*CloudStore, error) {
	if opts.URI == "" {
		return nil, errors.New("cloud uri is not configured")
	}
	if opts.Database == "" {
		opts.Database = "libshelf"
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = 10 * time.Second
	}
	if opts.RegistryTTL <= 0 {
		opts.RegistryTTL = 30 * time.Second
	}

	clientOpts := options.Client().
		ApplyURI(opts.URI).
		SetConnectTimeout(opts.ConnectTimeout).
		SetServerSelectionTimeout(opts.ConnectTimeout)
	client, err := mongo.Connect(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to cloud store: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping cloud store: %w", err)
	}

	store := &CloudStore{
		client:    client,
		db:        client.Database(opts.Database),
		opTimeout: opts.OpTimeout,
		registry:  cache.New[[]models.LibraryRegistryEntry](opts.RegistryTTL),
		now:       func() time.Time { return time.Now().UTC() },
	}

	idxCtx, idxCancel := store.opContext(ctx)
	defer idxCancel()
	_, err = store.books().Indexes().CreateOne(idxCtx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create books index: %w", err)
	}

	return store, nil
}

func (c *CloudStore) Backend() string { return BackendCloud }

func (c *CloudStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.opTimeout)
	defer cancel()
	return c.client.Disconnect(ctx)
}

func (c *CloudStore) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.opTimeout)
}

func (c *CloudStore) books() *mongo.Collection      { return c.db.Collection("books") }
func (c *CloudStore) libraries() *mongo.Collection  { return c.db.Collection("libraries") }
func (c *CloudStore) users() *mongo.Collection      { return c.db.Collection("users") }
func (c *CloudStore) likes() *mongo.Collection      { return c.db.Collection("likes") }
func (c *CloudStore) principals() *mongo.Collection { return c.db.Collection("principals") }

// ResolvePrincipal records a sign-in for id and returns it. It is the
// authentication half of the startup probe.
func (c *CloudStore) ResolvePrincipal(ctx context.Context, id string, anonymous bool) (_ string, err error) {
	defer observe(BackendCloud, "resolve_principal", time.Now(), &err)
	if id == "" {
		return "", errors.New("empty principal id")
	}
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "anonymous", Value: anonymous},
		{Key: "last_seen", Value: c.now()},
	}}}
	_, err = c.principals().UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		return "", fmt.Errorf("failed to resolve principal: %w", err)
	}
	return id, nil
}

func ownedBook(ownerID, id string) bson.D {
	return bson.D{{Key: "_id", Value: id}, {Key: "owner_id", Value: ownerID}}
}

// Book operations

func (c *CloudStore) ListBooks(ctx context.Context, ownerID string) (_ []models.Book, err error) {
	defer observe(BackendCloud, "list_books", time.Now(), &err)
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := c.books().Find(ctx, bson.D{{Key: "owner_id", Value: ownerID}}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	var docs []bookDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode books: %w", err)
	}

	books := make([]models.Book, 0, len(docs))
	for _, d := range docs {
		books = append(books, d.Book)
	}
	// the server sort is by the stored millisecond timestamps; re-sort so
	// tie-breaking matches the local store exactly
	models.SortNewestFirst(books)
	return books, nil
}

func (c *CloudStore) GetBook(ctx context.Context, ownerID, id string) (_ *models.Book, err error) {
	defer observe(BackendCloud, "get_book", time.Now(), &err)
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	var doc bookDoc
	err = c.books().FindOne(ctx, ownedBook(ownerID, id)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get book %s: %w", id, err)
	}
	return &doc.Book, nil
}

func (c *CloudStore) AddBook(ctx context.Context, ownerID string, nb models.NewBook) (_ *models.Book, err error) {
	defer observe(BackendCloud, "add_book", time.Now(), &err)
	if err := nb.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	// millisecond precision is all the database keeps
	now := c.now().Truncate(time.Millisecond)
	doc := bookDoc{Book: nb.Materialize(bson.NewObjectID().Hex(), now), OwnerID: ownerID}
	if _, err := c.books().InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to add book: %w", err)
	}
	return &doc.Book, nil
}

func (c *CloudStore) UpdateBook(ctx context.Context, ownerID, id string, patch models.BookPatch) (_ *models.Book, err error) {
	defer observe(BackendCloud, "update_book", time.Now(), &err)
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	set := bson.D{}
	for k, v := range patch.Fields() {
		set = append(set, bson.E{Key: k, Value: v})
	}
	set = append(set, bson.E{Key: "updated_at", Value: c.now().Truncate(time.Millisecond)})

	var doc bookDoc
	err = c.books().FindOneAndUpdate(ctx, ownedBook(ownerID, id),
		bson.D{{Key: "$set", Value: set}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update book %s: %w", id, err)
	}
	return &doc.Book, nil
}

func (c *CloudStore) DeleteBook(ctx context.Context, ownerID, id string) (err error) {
	defer observe(BackendCloud, "delete_book", time.Now(), &err)
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	if _, err := c.books().DeleteOne(ctx, ownedBook(ownerID, id)); err != nil {
		return fmt.Errorf("failed to delete book %s: %w", id, err)
	}
	return nil
}

// AdjustLikes applies likes = max(0, likes + delta) as one atomic
// pipeline update.
func (c *CloudStore) AdjustLikes(ctx context.Context, ownerID, id string, delta int) (_ int, err error) {
	defer observe(BackendCloud, "adjust_likes", time.Now(), &err)
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "likes", Value: bson.D{{Key: "$max", Value: bson.A{
				0,
				bson.D{{Key: "$add", Value: bson.A{bson.D{{Key: "$ifNull", Value: bson.A{"$likes", 0}}}, delta}}},
			}}}},
		}}},
	}

	var doc bookDoc
	err = c.books().FindOneAndUpdate(ctx, ownedBook(ownerID, id), pipeline,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, fmt.Errorf("book %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to adjust likes on %s: %w", id, err)
	}
	return doc.Likes, nil
}

// Like sets

func (c *CloudStore) GetLikeSet(ctx context.Context, viewerID string) (_ []string, err error) {
	defer observe(BackendCloud, "get_like_set", time.Now(), &err)
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	var doc likeDoc
	err = c.likes().FindOne(ctx, bson.D{{Key: "_id", Value: viewerID}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read likes: %w", err)
	}
	if doc.BookIDs == nil {
		doc.BookIDs = []string{}
	}
	return doc.BookIDs, nil
}

func (c *CloudStore) SetLiked(ctx context.Context, viewerID, bookID string, liked bool) (err error) {
	defer observe(BackendCloud, "set_liked", time.Now(), &err)
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	op := "$pull"
	if liked {
		op = "$addToSet"
	}
	update := bson.D{{Key: op, Value: bson.D{{Key: "book_ids", Value: bookID}}}}
	_, err = c.likes().UpdateOne(ctx, bson.D{{Key: "_id", Value: viewerID}}, update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to write likes: %w", err)
	}
	return nil
}

// Library metadata

func (c *CloudStore) GetLibraryInfo(ctx context.Context, ownerID string) (_ *models.LibraryInfo, err error) {
	defer observe(BackendCloud, "get_library_info", time.Now(), &err)
	info, _, err := c.libraryInfo(ctx, ownerID)
	return info, err
}

// libraryInfo returns the stored info or the defaults, and whether a
// document existed.
func (c *CloudStore) libraryInfo(ctx context.Context, ownerID string) (*models.LibraryInfo, bool, error) {
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	var info models.LibraryInfo
	err := c.libraries().FindOne(ctx, bson.D{{Key: "_id", Value: ownerID}}).Decode(&info)
	if errors.Is(err, mongo.ErrNoDocuments) {
		def := models.DefaultLibraryInfo(ownerID, c.now())
		return &def, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read library info: %w", err)
	}
	info.ID = ownerID
	return &info, true, nil
}

func (c *CloudStore) SaveLibraryInfo(ctx context.Context, ownerID string, patch models.LibraryInfoPatch) (_ *models.LibraryInfo, err error) {
	defer observe(BackendCloud, "save_library_info", time.Now(), &err)
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	info, _, err := c.libraryInfo(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	patch.Apply(info, c.now().Truncate(time.Millisecond))
	info.ID = ownerID

	opCtx, cancel := c.opContext(ctx)
	defer cancel()
	_, err = c.libraries().ReplaceOne(opCtx, bson.D{{Key: "_id", Value: ownerID}}, info, options.Replace().SetUpsert(true))
	if err != nil {
		return nil, fmt.Errorf("failed to save library info: %w", err)
	}
	return info, nil
}

// Registry

func (c *CloudStore) PutRegistryEntry(ctx context.Context, entry models.LibraryRegistryEntry) (err error) {
	defer observe(BackendCloud, "put_registry_entry", time.Now(), &err)
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	_, err = c.users().ReplaceOne(ctx, bson.D{{Key: "_id", Value: entry.ID}}, entry, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to write registry entry: %w", err)
	}
	c.registry.Invalidate(registryCacheKey)
	return nil
}

func (c *CloudStore) DeleteRegistryEntry(ctx context.Context, id string) (err error) {
	defer observe(BackendCloud, "delete_registry_entry", time.Now(), &err)
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	if _, err := c.users().DeleteOne(ctx, bson.D{{Key: "_id", Value: id}}); err != nil {
		return fmt.Errorf("failed to delete registry entry: %w", err)
	}
	c.registry.Invalidate(registryCacheKey)
	return nil
}

func (c *CloudStore) GetRegistryEntry(ctx context.Context, id string) (_ *models.LibraryRegistryEntry, err error) {
	defer observe(BackendCloud, "get_registry_entry", time.Now(), &err)
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	var entry models.LibraryRegistryEntry
	err = c.users().FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read registry entry: %w", err)
	}
	return &entry, nil
}

// SearchLibrariesByName fetches the whole registry (cached) and filters it
// client-side with the same rule the local store uses.
func (c *CloudStore) SearchLibrariesByName(ctx context.Context, text string) (_ []models.LibraryRegistryEntry, err error) {
	defer observe(BackendCloud, "search_libraries", time.Now(), &err)
	entries, err := c.registry.GetOrLoad(registryCacheKey, func() ([]models.LibraryRegistryEntry, error) {
		ctx, cancel := c.opContext(ctx)
		defer cancel()

		cursor, err := c.users().Find(ctx, bson.D{})
		if err != nil {
			return nil, fmt.Errorf("failed to list registry: %w", err)
		}
		var all []models.LibraryRegistryEntry
		if err := cursor.All(ctx, &all); err != nil {
			return nil, fmt.Errorf("failed to decode registry: %w", err)
		}
		return all, nil
	})
	hits, misses := c.registry.Stats()
	metrics.SetCacheStats("registry", hits, misses)
	if err != nil {
		return nil, err
	}
	return filterRegistry(entries, text), nil
}

// Derived views

func (c *CloudStore) ComputeStats(ctx context.Context, ownerID string) (_ *models.Stats, err error) {
	defer observe(BackendCloud, "compute_stats", time.Now(), &err)
	books, err := c.ListBooks(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	stats := models.ComputeStats(books)
	return &stats, nil
}

// GetSharedLibrary reads the library live. Info falls back to the
// registry entry, then to a placeholder name.
func (c *CloudStore) GetSharedLibrary(ctx context.Context, libraryID string) (_ *models.SharedLibrary, err error) {
	defer observe(BackendCloud, "get_shared_library", time.Now(), &err)
	info, found, err := c.libraryInfo(ctx, libraryID)
	if err != nil {
		return nil, err
	}
	books, err := c.ListBooks(ctx, libraryID)
	if err != nil {
		return nil, err
	}

	if !found {
		entry, err := c.GetRegistryEntry(ctx, libraryID)
		if err != nil {
			return nil, err
		}
		switch {
		case entry != nil:
			info = &models.LibraryInfo{
				ID:          libraryID,
				Name:        entry.Name,
				Description: entry.Description,
				Avatar:      entry.Avatar,
				Visibility:  models.VisibilityPublic,
				UpdatedAt:   entry.UpdatedAt,
			}
		case len(books) > 0:
			info = &models.LibraryInfo{
				ID:         libraryID,
				Name:       models.UnknownLibraryName,
				Avatar:     models.DefaultLibraryAvatar,
				Visibility: models.VisibilityPublic,
			}
		default:
			return nil, nil
		}
	}

	return &models.SharedLibrary{LibraryInfo: *info, Books: books, CreatedAt: c.now()}, nil
}

// PublishSnapshot returns the live view; cloud sharing needs no copy.
func (c *CloudStore) PublishSnapshot(ctx context.Context, ownerID string) (_ *models.SharedLibrary, err error) {
	defer observe(BackendCloud, "publish_snapshot", time.Now(), &err)
	info, _, err := c.libraryInfo(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	books, err := c.ListBooks(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return &models.SharedLibrary{LibraryInfo: *info, Books: books, CreatedAt: c.now()}, nil
}
