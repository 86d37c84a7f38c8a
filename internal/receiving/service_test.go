package receiving

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-retail/meridian/internal/payments"
	"github.com/meridian-retail/meridian/internal/stockledger"
)

// recvState is the backing store of the in-memory repository. WithTx runs
// against a deep copy and commits it only on success, mirroring the rollback
// behavior of the real transaction.
type recvState struct {
	orders   map[int64]*Order
	tokens   map[string][]byte
	skus     map[string]int64
	products map[int64]ProductRecord
	batches  []stockledger.Batch
	pays     []payments.Record
	nextID   int64
}

func (s *recvState) clone() *recvState {
	cp := &recvState{
		orders:   make(map[int64]*Order, len(s.orders)),
		tokens:   maps.Clone(s.tokens),
		skus:     maps.Clone(s.skus),
		products: maps.Clone(s.products),
		batches:  slices.Clone(s.batches),
		pays:     slices.Clone(s.pays),
		nextID:   s.nextID,
	}
	for id, o := range s.orders {
		oc := *o
		oc.Lines = slices.Clone(o.Lines)
		cp.orders[id] = &oc
	}
	return cp
}

type memoryRecvRepo struct {
	state     recvState
	conflicts int
}

func newMemoryRecvRepo(orders ...*Order) *memoryRecvRepo {
	m := &memoryRecvRepo{state: recvState{
		orders:   make(map[int64]*Order),
		tokens:   make(map[string][]byte),
		skus:     make(map[string]int64),
		products: make(map[int64]ProductRecord),
		nextID:   1000,
	}}
	for _, o := range orders {
		m.state.orders[o.ID] = o
	}
	return m
}

func (m *memoryRecvRepo) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	if m.conflicts > 0 {
		m.conflicts--
		return ErrWriteConflict
	}
	cp := m.state.clone()
	if err := fn(ctx, &memoryRecvTx{s: cp}); err != nil {
		return err
	}
	m.state = *cp
	return nil
}

func (m *memoryRecvRepo) GetOrder(_ context.Context, orderID int64) (Order, error) {
	o, ok := m.state.orders[orderID]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	oc := *o
	oc.Lines = slices.Clone(o.Lines)
	return oc, nil
}

type memoryRecvTx struct {
	s *recvState
}

func tokenKey(orderID int64, token string) string {
	return fmt.Sprintf("%d:%s", orderID, token)
}

func (t *memoryRecvTx) GetOrderForUpdate(_ context.Context, orderID int64) (Order, error) {
	o, ok := t.s.orders[orderID]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	oc := *o
	oc.Lines = slices.Clone(o.Lines)
	return oc, nil
}

func (t *memoryRecvTx) LookupReceiptToken(_ context.Context, orderID int64, token string) ([]byte, error) {
	return t.s.tokens[tokenKey(orderID, token)], nil
}

func (t *memoryRecvTx) SaveReceiptToken(_ context.Context, orderID int64, token string, result []byte) error {
	key := tokenKey(orderID, token)
	if _, ok := t.s.tokens[key]; ok {
		return ErrWriteConflict
	}
	t.s.tokens[key] = result
	return nil
}

func (t *memoryRecvTx) UpdateLine(_ context.Context, line LineItem) error {
	o, ok := t.s.orders[line.OrderID]
	if !ok {
		return ErrOrderNotFound
	}
	for i := range o.Lines {
		if o.Lines[i].ID == line.ID {
			line.ProductID = o.Lines[i].ProductID // product binding owned by SetLineProduct
			o.Lines[i] = line
			return nil
		}
	}
	return ErrOrderNotFound
}

func (t *memoryRecvTx) UpdateOrderFinancials(_ context.Context, orderID int64, status OrderStatus, fig payments.Figures) error {
	o, ok := t.s.orders[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	o.Status = status
	o.PaymentStatus = fig.Status
	o.AmountPaid = fig.AmountPaid
	o.AmountDue = fig.AmountDue
	return nil
}

func (t *memoryRecvTx) CreateProduct(_ context.Context, rec ProductRecord) (int64, error) {
	if _, taken := t.s.skus[rec.SKU]; taken {
		return 0, ErrDuplicateSKU
	}
	t.s.nextID++
	t.s.products[t.s.nextID] = rec
	t.s.skus[rec.SKU] = t.s.nextID
	return t.s.nextID, nil
}

func (t *memoryRecvTx) SetLineProduct(_ context.Context, lineID, productID int64) error {
	for _, o := range t.s.orders {
		for i := range o.Lines {
			if o.Lines[i].ID == lineID {
				if o.Lines[i].ProductID != 0 {
					return fmt.Errorf("line %d already resolved", lineID)
				}
				o.Lines[i].ProductID = productID
				return nil
			}
		}
	}
	return ErrOrderNotFound
}

func (t *memoryRecvTx) SKUExists(_ context.Context, sku string) (bool, error) {
	_, ok := t.s.skus[sku]
	return ok, nil
}

func (t *memoryRecvTx) InsertBatch(_ context.Context, b stockledger.Batch) (int64, error) {
	t.s.nextID++
	b.ID = t.s.nextID
	t.s.batches = append(t.s.batches, b)
	return b.ID, nil
}

func (t *memoryRecvTx) InsertPayment(_ context.Context, rec payments.Record) (int64, error) {
	t.s.nextID++
	rec.ID = t.s.nextID
	t.s.pays = append(t.s.pays, rec)
	return rec.ID, nil
}

func newReceiveService(repo *memoryRecvRepo) *Service {
	return NewService(repo, stockledger.NewLedger(), nil, slog.New(slog.NewTextHandler(io.Discard, nil)), Options{
		DefaultMarkup:      1.30,
		MaxConflictRetries: 3,
	})
}

func orderedOrder() *Order {
	return &Order{
		ID:            1,
		InvoiceNumber: "PO-1001",
		SupplierID:    5,
		StoreID:       2,
		GrandTotal:    1000,
		Status:        StatusOrdered,
		PaymentStatus: payments.StatusPending,
		Lines: []LineItem{{
			ID:            11,
			OrderID:       1,
			Name:          "Arabica beans 1kg",
			Unit:          "bag",
			QtyOrdered:    100,
			PurchasePrice: 10,
		}},
	}
}

func ptr(v float64) *float64 { return &v }

func TestReceiveFullDeliveryCreatesProduct(t *testing.T) {
	repo := newMemoryRecvRepo(orderedOrder())
	svc := newReceiveService(repo)

	result, err := svc.Receive(context.Background(), ReceiveItemsRequest{
		OrderID:            1,
		ClientRequestToken: "tok-1",
		Items: []ReceiveItem{{
			LineItemID:       11,
			QtyReceivedDelta: 100,
			PurchasePrice:    10,
			SellingPrice:     ptr(15),
		}},
	})
	require.NoError(t, err)

	require.Len(t, result.NewProductsCreated, 1)
	assert.Equal(t, "PO1-L11", result.NewProductsCreated[0].SKU)
	assert.Equal(t, 100.0, result.NewProductsCreated[0].InitialStock)
	assert.Equal(t, StatusReceived, result.Order.Status)
	assert.Equal(t, payments.StatusPending, result.Order.PaymentStatus)
	require.Len(t, result.UpdatedLineItems, 1)
	assert.Equal(t, 100.0, result.UpdatedLineItems[0].QtyReceived)

	require.Len(t, repo.state.batches, 1)
	assert.Equal(t, 100.0, repo.state.batches[0].Qty)
	assert.Equal(t, int64(2), repo.state.batches[0].StoreID)
	assert.Equal(t, int64(11), repo.state.batches[0].SourceLineID)
	assert.Equal(t, 15.0, repo.state.orders[1].Lines[0].SellingPrice)
	assert.NotZero(t, repo.state.orders[1].Lines[0].ProductID)
}

func TestReceivePartialThenComplete(t *testing.T) {
	order := orderedOrder()
	order.Lines[0].ProductID = 40
	repo := newMemoryRecvRepo(order)
	svc := newReceiveService(repo)

	result, err := svc.Receive(context.Background(), ReceiveItemsRequest{
		OrderID:            1,
		ClientRequestToken: "tok-a",
		Items:              []ReceiveItem{{LineItemID: 11, QtyReceivedDelta: 60, PurchasePrice: 10}},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPartiallyReceived, result.Order.Status)

	result, err = svc.Receive(context.Background(), ReceiveItemsRequest{
		OrderID:            1,
		ClientRequestToken: "tok-b",
		Items:              []ReceiveItem{{LineItemID: 11, QtyReceivedDelta: 40, PurchasePrice: 10}},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusReceived, result.Order.Status)
	assert.Equal(t, 100.0, repo.state.orders[1].Lines[0].QtyReceived)
	assert.Len(t, repo.state.batches, 2)
	assert.Empty(t, repo.state.products, "existing product line must not create a product")
}

func TestReceiveOverReceiptRejectedAtomically(t *testing.T) {
	order := orderedOrder()
	order.Lines[0].ProductID = 40
	order.Lines = append(order.Lines, LineItem{
		ID: 12, OrderID: 1, ProductID: 41, Name: "Robusta beans 1kg", Unit: "bag",
		QtyOrdered: 50, QtyReceived: 50, PurchasePrice: 8,
	})
	repo := newMemoryRecvRepo(order)
	svc := newReceiveService(repo)

	_, err := svc.Receive(context.Background(), ReceiveItemsRequest{
		OrderID:            1,
		ClientRequestToken: "tok-1",
		Items: []ReceiveItem{
			{LineItemID: 11, QtyReceivedDelta: 10, PurchasePrice: 10}, // valid
			{LineItemID: 12, QtyReceivedDelta: 5, PurchasePrice: 8},   // already full
		},
	})

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve.Lines, 1)
	assert.Equal(t, int64(12), ve.Lines[0].LineItemID)

	assert.Empty(t, repo.state.batches, "rejected request must not write batches")
	assert.Equal(t, 0.0, repo.state.orders[1].Lines[0].QtyReceived, "valid line must not be applied either")
}

func TestReceiveTokenReplay(t *testing.T) {
	repo := newMemoryRecvRepo(orderedOrder())
	svc := newReceiveService(repo)

	req := ReceiveItemsRequest{
		OrderID:            1,
		ClientRequestToken: "tok-dup",
		Items: []ReceiveItem{{
			LineItemID: 11, QtyReceivedDelta: 100, PurchasePrice: 10, SellingPrice: ptr(15),
		}},
		Payment: &PaymentInput{Amount: 400, Method: "bank"},
	}

	first, err := svc.Receive(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.Receive(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, repo.state.batches, 1, "replay must not append a second batch")
	assert.Len(t, repo.state.pays, 1, "replay must not record a second payment")
	assert.Len(t, repo.state.products, 1)
}

func TestReceiveWithPayment(t *testing.T) {
	order := orderedOrder()
	order.Lines[0].ProductID = 40
	repo := newMemoryRecvRepo(order)
	svc := newReceiveService(repo)

	result, err := svc.Receive(context.Background(), ReceiveItemsRequest{
		OrderID:            1,
		ClientRequestToken: "tok-1",
		Items:              []ReceiveItem{{LineItemID: 11, QtyReceivedDelta: 50, PurchasePrice: 10}},
		Payment:            &PaymentInput{Amount: 400, Method: "bank", Notes: "first installment"},
	})
	require.NoError(t, err)

	assert.Equal(t, 400.0, result.Order.AmountPaid)
	assert.Equal(t, 600.0, result.Order.AmountDue)
	assert.Equal(t, payments.StatusPartial, result.Order.PaymentStatus)
	require.Len(t, repo.state.pays, 1)
	assert.Equal(t, "bank", repo.state.pays[0].Method)
}

func TestReceiveOverpaymentRejected(t *testing.T) {
	order := orderedOrder()
	order.Lines[0].ProductID = 40
	order.AmountPaid = 900
	repo := newMemoryRecvRepo(order)
	svc := newReceiveService(repo)

	_, err := svc.Receive(context.Background(), ReceiveItemsRequest{
		OrderID:            1,
		ClientRequestToken: "tok-1",
		Items:              []ReceiveItem{{LineItemID: 11, QtyReceivedDelta: 10, PurchasePrice: 10}},
		Payment:            &PaymentInput{Amount: 200},
	})
	assert.ErrorIs(t, err, payments.ErrOverpayment)
	assert.Equal(t, KindOverpayment, KindOf(err))
	assert.Empty(t, repo.state.batches, "overpayment must reject the goods lines too")
	assert.Empty(t, repo.state.pays)
}

func TestReceiveTerminalStates(t *testing.T) {
	cancelled := orderedOrder()
	cancelled.Status = StatusCancelled
	received := orderedOrder()
	received.ID = 2
	received.Status = StatusReceived
	draft := orderedOrder()
	draft.ID = 3
	draft.Status = StatusDraft
	repo := newMemoryRecvRepo(cancelled, received, draft)
	svc := newReceiveService(repo)

	item := ReceiveItem{LineItemID: 11, QtyReceivedDelta: 1, PurchasePrice: 10, SellingPrice: ptr(15)}

	_, err := svc.Receive(context.Background(), ReceiveItemsRequest{OrderID: 1, ClientRequestToken: "t", Items: []ReceiveItem{item}})
	assert.ErrorIs(t, err, ErrTerminalState)
	assert.Equal(t, KindTerminalState, KindOf(err))

	_, err = svc.Receive(context.Background(), ReceiveItemsRequest{OrderID: 2, ClientRequestToken: "t", Items: []ReceiveItem{item}})
	assert.ErrorIs(t, err, ErrTerminalState)

	_, err = svc.Receive(context.Background(), ReceiveItemsRequest{OrderID: 3, ClientRequestToken: "t", Items: []ReceiveItem{item}})
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestReceiveRetriesTransientConflicts(t *testing.T) {
	order := orderedOrder()
	order.Lines[0].ProductID = 40
	repo := newMemoryRecvRepo(order)
	repo.conflicts = 2
	svc := newReceiveService(repo)

	result, err := svc.Receive(context.Background(), ReceiveItemsRequest{
		OrderID:            1,
		ClientRequestToken: "tok-1",
		Items:              []ReceiveItem{{LineItemID: 11, QtyReceivedDelta: 10, PurchasePrice: 10}},
	})
	require.NoError(t, err, "two conflicts fit inside three attempts")
	assert.Equal(t, 10.0, result.UpdatedLineItems[0].QtyReceived)
}

func TestReceiveSurfacesConcurrentModification(t *testing.T) {
	order := orderedOrder()
	order.Lines[0].ProductID = 40
	repo := newMemoryRecvRepo(order)
	repo.conflicts = 3
	svc := newReceiveService(repo)

	_, err := svc.Receive(context.Background(), ReceiveItemsRequest{
		OrderID:            1,
		ClientRequestToken: "tok-1",
		Items:              []ReceiveItem{{LineItemID: 11, QtyReceivedDelta: 10, PurchasePrice: 10}},
	})
	assert.ErrorIs(t, err, ErrConcurrentModification)
	assert.Equal(t, KindConcurrentModification, KindOf(err))
	assert.Empty(t, repo.state.batches)
}

func TestReceiveZeroDeltaSkipsLedger(t *testing.T) {
	order := orderedOrder()
	order.Lines[0].ProductID = 40
	repo := newMemoryRecvRepo(order)
	svc := newReceiveService(repo)

	result, err := svc.Receive(context.Background(), ReceiveItemsRequest{
		OrderID:            1,
		ClientRequestToken: "tok-1",
		Items:              []ReceiveItem{{LineItemID: 11, QtyReceivedDelta: 0, PurchasePrice: 12}},
	})
	require.NoError(t, err)
	assert.Empty(t, result.UpdatedLineItems)
	assert.Empty(t, repo.state.batches)
	assert.Equal(t, 12.0, repo.state.orders[1].Lines[0].PurchasePrice, "snapshot fields still update")
}

func TestReceiveMissingPriceForNewProduct(t *testing.T) {
	repo := newMemoryRecvRepo(orderedOrder())
	svc := newReceiveService(repo)

	_, err := svc.Receive(context.Background(), ReceiveItemsRequest{
		OrderID:            1,
		ClientRequestToken: "tok-1",
		Items:              []ReceiveItem{{LineItemID: 11, QtyReceivedDelta: 10, PurchasePrice: 10}},
	})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, KindMissingPrice, KindOf(err))
	assert.Empty(t, repo.state.products)
}

func TestReceiveDefaultMarkupForExistingProduct(t *testing.T) {
	order := orderedOrder()
	order.Lines[0].ProductID = 40
	repo := newMemoryRecvRepo(order)
	svc := newReceiveService(repo)

	_, err := svc.Receive(context.Background(), ReceiveItemsRequest{
		OrderID:            1,
		ClientRequestToken: "tok-1",
		Items:              []ReceiveItem{{LineItemID: 11, QtyReceivedDelta: 10, PurchasePrice: 10}},
	})
	require.NoError(t, err)
	assert.InDelta(t, 13.0, repo.state.orders[1].Lines[0].SellingPrice, 0.001)
}

func TestReceivePaymentMonotonicity(t *testing.T) {
	order := orderedOrder()
	order.Lines[0].ProductID = 40
	repo := newMemoryRecvRepo(order)
	svc := newReceiveService(repo)

	for i, amount := range []float64{400, 600} {
		_, err := svc.Receive(context.Background(), ReceiveItemsRequest{
			OrderID:            1,
			ClientRequestToken: fmt.Sprintf("tok-%d", i),
			Items:              []ReceiveItem{{LineItemID: 11, QtyReceivedDelta: 10, PurchasePrice: 10}},
			Payment:            &PaymentInput{Amount: amount},
		})
		require.NoError(t, err)
	}
	o := repo.state.orders[1]
	assert.Equal(t, 1000.0, o.AmountPaid)
	assert.Equal(t, 0.0, o.AmountDue)
	assert.Equal(t, payments.StatusPaid, o.PaymentStatus)
}

func TestReceiveUnknownOrder(t *testing.T) {
	svc := newReceiveService(newMemoryRecvRepo())
	_, err := svc.Receive(context.Background(), ReceiveItemsRequest{
		OrderID:            9,
		ClientRequestToken: "tok",
		Items:              []ReceiveItem{{LineItemID: 1, QtyReceivedDelta: 1, PurchasePrice: 1}},
	})
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestReceiveRequiresToken(t *testing.T) {
	svc := newReceiveService(newMemoryRecvRepo(orderedOrder()))
	_, err := svc.Receive(context.Background(), ReceiveItemsRequest{
		OrderID: 1,
		Items:   []ReceiveItem{{LineItemID: 11, QtyReceivedDelta: 1, PurchasePrice: 1}},
	})
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}
