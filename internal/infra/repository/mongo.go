package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/attid/MyMTLWalletBot-sub000/internal/domain"
	"github.com/attid/MyMTLWalletBot-sub000/internal/ports"
)

// Mongo bundles the relay's collections behind the ports interfaces.
type Mongo struct {
	client        *mongo.Client
	wallets       *mongo.Collection
	filters       *mongo.Collection
	subscriptions *mongo.Collection
	notifications *mongo.Collection
}

func NewMongo(ctx context.Context, uri, dbName string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, err
	}
	db := client.Database(dbName)
	return &Mongo{
		client:        client,
		wallets:       db.Collection("wallets"),
		filters:       db.Collection("filters"),
		subscriptions: db.Collection("subscriptions"),
		notifications: db.Collection("notifications"),
	}, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *Mongo) Wallets() ports.WalletStore { return &walletRepo{col: m.wallets} }
func (m *Mongo) Filters() ports.FilterStore { return &filterRepo{col: m.filters} }

func (m *Mongo) Subscriptions() ports.SubscriptionStore {
	return &subscriptionRepo{col: m.subscriptions}
}

func (m *Mongo) Notifications() ports.NotificationLog {
	return &notificationRepo{col: m.notifications}
}

type walletRepo struct {
	col *mongo.Collection
}

func (r *walletRepo) FindActiveByPublicKeys(ctx context.Context, keys []string) ([]domain.Wallet, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	cur, err := r.col.Find(ctx, bson.M{
		"publicKey": bson.M{"$in": keys},
		"active":    true,
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []domain.Wallet
	for cur.Next(ctx) {
		var w domain.Wallet
		if err := cur.Decode(&w); err == nil {
			out = append(out, w)
		}
	}
	return out, cur.Err()
}

type filterRepo struct {
	col *mongo.Collection
}

func (r *filterRepo) ByUser(ctx context.Context, userID string) ([]domain.Filter, error) {
	cur, err := r.col.Find(ctx, bson.M{"userId": userID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []domain.Filter
	for cur.Next(ctx) {
		var f domain.Filter
		if err := cur.Decode(&f); err == nil {
			out = append(out, f)
		}
	}
	return out, cur.Err()
}

type subscriptionRepo struct {
	col *mongo.Collection
}

func (r *subscriptionRepo) ListAccounts(ctx context.Context) ([]string, error) {
	cur, err := r.col.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []string
	for cur.Next(ctx) {
		var s domain.Subscription
		if err := cur.Decode(&s); err == nil && s.Account != "" {
			out = append(out, s.Account)
		}
	}
	return out, cur.Err()
}

func (r *subscriptionRepo) Track(ctx context.Context, account string) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"account": account},
		bson.M{"$set": bson.M{"account": account, "createdAt": time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *subscriptionRepo) Untrack(ctx context.Context, account string) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"account": account})
	return err
}

type notificationRepo struct {
	col *mongo.Collection
}

func (r *notificationRepo) Save(ctx context.Context, n domain.Notification) error {
	_, err := r.col.InsertOne(ctx, n)
	return err
}
