package store

import (
	"context"
	"fmt"

	"go-storefront/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// Collection names in the document store.
const (
	OrdersCollection          = "orders"
	UsersCollection           = "users"
	CredentialsCollection     = "credentials"
	ProductsCollection        = "products"
	SettingsCollection        = "settings"
	CategoriesCollection      = "categories"
	HeroSlidesCollection      = "heroSlides"
	ContactMessagesCollection = "contactMessages"
)

// Database groups the typed collections used by the services. The settings collection is
// exposed through one view per document shape.
type Database struct {
	Orders          Collection[models.Order]
	Users           Collection[models.User]
	Credentials     Collection[models.Credential]
	Products        Collection[models.Product]
	Categories      Collection[models.Category]
	HeroSlides      Collection[models.HeroSlide]
	ContactMessages Collection[models.ContactMessage]
	SiteDocs        Collection[models.SiteDocument]
	NavbarDocs      Collection[models.NavbarDocument]
	Pages           Collection[models.PageContent]
}

func OpenMongo(db *mongo.Database) *Database {
	return &Database{
		Orders:          NewMongoCollection[models.Order](db, OrdersCollection),
		Users:           NewMongoCollection[models.User](db, UsersCollection),
		Credentials:     NewMongoCollection[models.Credential](db, CredentialsCollection),
		Products:        NewMongoCollection[models.Product](db, ProductsCollection),
		Categories:      NewMongoCollection[models.Category](db, CategoriesCollection),
		HeroSlides:      NewMongoCollection[models.HeroSlide](db, HeroSlidesCollection),
		ContactMessages: NewMongoCollection[models.ContactMessage](db, ContactMessagesCollection),
		SiteDocs:        NewMongoCollection[models.SiteDocument](db, SettingsCollection),
		NavbarDocs:      NewMongoCollection[models.NavbarDocument](db, SettingsCollection),
		Pages:           NewMongoCollection[models.PageContent](db, SettingsCollection),
	}
}

func OpenMemory(s *MemoryStore) *Database {
	return &Database{
		Orders:          NewMemoryCollection[models.Order](s, OrdersCollection),
		Users:           NewMemoryCollection[models.User](s, UsersCollection),
		Credentials:     NewMemoryCollection[models.Credential](s, CredentialsCollection),
		Products:        NewMemoryCollection[models.Product](s, ProductsCollection),
		Categories:      NewMemoryCollection[models.Category](s, CategoriesCollection),
		HeroSlides:      NewMemoryCollection[models.HeroSlide](s, HeroSlidesCollection),
		ContactMessages: NewMemoryCollection[models.ContactMessage](s, ContactMessagesCollection),
		SiteDocs:        NewMemoryCollection[models.SiteDocument](s, SettingsCollection),
		NavbarDocs:      NewMemoryCollection[models.NavbarDocument](s, SettingsCollection),
		Pages:           NewMemoryCollection[models.PageContent](s, SettingsCollection),
	}
}

// Open selects the document store by driver name. The returned watcher is the push watcher
// of the driver when changeStreams is set and the driver supports it, else nil. release
// releases the connection.
func Open(ctx context.Context, driver, uri, database string, changeStreams bool) (db *Database, watcher Watcher, release func(), err error) {
	switch driver {
	case "memory":
		return OpenMemory(NewMemoryStore()), nil, func() {}, nil
	case "mongo", "":
		client, err := Connect(ctx, uri)
		if err != nil {
			return nil, nil, nil, err
		}
		mdb := client.Database(database)
		if changeStreams {
			watcher = MongoWatcher{DB: mdb}
		}
		return OpenMongo(mdb), watcher, func() {
			ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
			defer cancel()
			_ = client.Disconnect(ctx)
		}, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
