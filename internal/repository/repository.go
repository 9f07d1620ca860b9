package repository

import (
	"context"
	"errors"
	"time"

	"order-lifecycle-service/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound           = errors.New("orden no encontrada")
	ErrVersionConflict    = errors.New("la orden fue modificada por otra operación")
	ErrOrderAlreadyExists = errors.New("la orden ya existe")
)

// PaymentUpdate son los campos de pago que se reemplazan juntos.
type PaymentUpdate struct {
	PaymentStatus model.PaymentStatus
	Amount        int64
	Note          string
	ReceiptImages []string // nil: no se tocan
}

// Mongo implementation
type MongoOrderRepository struct {
	col *mongo.Collection
}

func NewMongoOrderRepository(db *mongo.Database) *MongoOrderRepository {
	return &MongoOrderRepository{col: db.Collection("orders")}
}

// EnsureIndexes crea el índice único por order_id y el de status.
func (m *MongoOrderRepository) EnsureIndexes(ctx context.Context) error {
	_, err := m.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "order_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "order_number", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
	})
	return err
}

func (m *MongoOrderRepository) Create(ctx context.Context, o *model.Order) error {
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now
	o.Version = 1
	// Primer estado en historial
	o.History = []model.StatusRecord{
		{
			To:        o.Status,
			Timestamp: now,
			UserID:    o.UserID, // creador
			Note:      "Orden creada",
			Current:   true,
		},
	}
	if o.ReceiptImages == nil {
		o.ReceiptImages = []string{}
	}

	_, err := m.col.InsertOne(ctx, o)
	if mongo.IsDuplicateKeyError(err) {
		return ErrOrderAlreadyExists
	}
	return err
}

func (m *MongoOrderRepository) FindByOrderID(ctx context.Context, orderID string) (*model.Order, error) {
	var res model.Order
	err := m.col.FindOne(ctx, bson.M{"order_id": orderID}).Decode(&res)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// UpdateStatus aplica la transición solo si la orden sigue en from y en la
// versión leída; si no, devuelve ErrVersionConflict.
func (m *MongoOrderRepository) UpdateStatus(ctx context.Context, orderID string, version int64, record model.StatusRecord) (*model.Order, error) {

	// PASO 1: cambiar estado, desmarcar el actual y subir la versión
	filter := bson.M{
		"order_id": orderID,
		"status":   record.From,
		"version":  version,
	}
	update1 := bson.M{
		"$set": bson.M{
			"status":              record.To,
			"updated_at":          record.Timestamp,
			"history.$[].current": false,
		},
		"$inc": bson.M{"version": 1},
	}

	r1, err := m.col.UpdateOne(ctx, filter, update1)
	if err != nil {
		return nil, err
	}
	if r1.MatchedCount == 0 {
		return nil, m.missOrConflict(ctx, orderID)
	}

	// PASO 2: pushear nuevo registro
	update2 := bson.M{"$push": bson.M{"history": record}}
	return m.findOneAndUpdate(ctx, bson.M{"order_id": orderID}, update2)
}

func (m *MongoOrderRepository) UpdatePayment(ctx context.Context, orderID string, version int64, p PaymentUpdate) (*model.Order, error) {
	now := time.Now().UTC()
	set := bson.M{
		"payment_status":     p.PaymentStatus,
		"paid_amount":        p.Amount,
		"payment_note":       p.Note,
		"payment_updated_at": now,
		"updated_at":         now,
	}
	if p.ReceiptImages != nil {
		set["receipt_images"] = p.ReceiptImages
	}

	filter := bson.M{"order_id": orderID, "version": version}
	o, err := m.findOneAndUpdate(ctx, filter, bson.M{"$set": set, "$inc": bson.M{"version": 1}})
	if errors.Is(err, ErrNotFound) {
		return nil, m.missOrConflict(ctx, orderID)
	}
	return o, err
}

func (m *MongoOrderRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*model.Order, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var res model.Order
	err := m.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&res)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (m *MongoOrderRepository) missOrConflict(ctx context.Context, orderID string) error {
	n, err := m.col.CountDocuments(ctx, bson.M{"order_id": orderID})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrVersionConflict
}

func (m *MongoOrderRepository) FindAll(ctx context.Context) ([]*model.Order, error) {
	return m.find(ctx, bson.M{})
}

func (m *MongoOrderRepository) FindByStatus(ctx context.Context, status model.Status) ([]*model.Order, error) {
	return m.find(ctx, bson.M{"status": status})
}

func (m *MongoOrderRepository) FindByUserID(ctx context.Context, userID string) ([]*model.Order, error) {
	return m.find(ctx, bson.M{"user_id": userID})
}

func (m *MongoOrderRepository) find(ctx context.Context, filter bson.M) ([]*model.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := m.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []*model.Order{}
	for cur.Next(ctx) {
		var v model.Order
		if err := cur.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, cur.Err()
}
