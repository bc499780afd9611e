package order

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stripe/stripe-go/v81"

	"github.com/valveaudio/backend/internal/domain/catalog"
	"github.com/valveaudio/backend/internal/domain/order"
	"github.com/valveaudio/backend/internal/domain/shared"
	"github.com/valveaudio/backend/internal/infrastructure/payment"
)

// MockOrderRepository is a mock implementation of order.Repository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByCode(ctx context.Context, code string) (*order.Order, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByStripeSession(ctx context.Context, sessionID string) (*order.Order, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByPaymentIntent(ctx context.Context, paymentIntentID string) (*order.Order, error) {
	args := m.Called(ctx, paymentIntentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]order.Order, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]order.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) FindDepositOverdue(ctx context.Context, now time.Time) ([]order.Order, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderRepository) Save(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) SaveWithLock(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to order.Status, paymentStatus *order.PaymentStatus, history *order.StatusHistory) (bool, error) {
	args := m.Called(ctx, id, from, to, paymentStatus, history)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) AppendHistory(ctx context.Context, history *order.StatusHistory) error {
	args := m.Called(ctx, history)
	return args.Error(0)
}

func (m *MockOrderRepository) GenerateCode(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// MockProductRepository is a mock implementation of catalog.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindBySlug(ctx context.Context, slug string) (*catalog.Product, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Product, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]catalog.Product), args.Get(1).(int64), args.Error(2)
}

func (m *MockProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) AdjustStock(ctx context.Context, id uuid.UUID, delta int) error {
	args := m.Called(ctx, id, delta)
	return args.Error(0)
}

// MockProofRepository is a mock implementation of order.TransferProofRepository
type MockProofRepository struct {
	mock.Mock
}

func (m *MockProofRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.TransferProof, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.TransferProof), args.Error(1)
}

func (m *MockProofRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]order.TransferProof, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.TransferProof), args.Error(1)
}

func (m *MockProofRepository) FindPendingByOrder(ctx context.Context, orderID uuid.UUID) (*order.TransferProof, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.TransferProof), args.Error(1)
}

func (m *MockProofRepository) Save(ctx context.Context, proof *order.TransferProof) error {
	args := m.Called(ctx, proof)
	return args.Error(0)
}

// MockGateway is a mock implementation of payment.Gateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateCheckoutSession(ctx context.Context, input payment.CheckoutSessionInput) (*payment.CheckoutSessionOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.CheckoutSessionOutput), args.Error(1)
}

func (m *MockGateway) CreateRefund(ctx context.Context, input payment.RefundInput) (*payment.RefundOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.RefundOutput), args.Error(1)
}

func (m *MockGateway) VerifyEvent(payload []byte, signature string) (stripe.Event, error) {
	args := m.Called(payload, signature)
	return args.Get(0).(stripe.Event), args.Error(1)
}

// fakeStorage is an in-memory ObjectStorage that can be told to fail after
// a number of uploads, for exercising the rollback path
type fakeStorage struct {
	mu          sync.Mutex
	objects     map[string][]byte
	failAfter   int // -1 never fails
	uploadCount int
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte), failAfter: -1}
}

func (f *fakeStorage) Upload(_ context.Context, key string, data []byte, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAfter >= 0 && f.uploadCount >= f.failAfter {
		return fmt.Errorf("storage write failed")
	}
	f.uploadCount++
	f.objects[key] = append([]byte(nil), data...)
	return nil
}

func (f *fakeStorage) GenerateDownloadURL(_ context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	return "https://storage.local/" + key, time.Now().Add(expiresIn), nil
}

func (f *fakeStorage) DeleteObject(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeStorage) ObjectExists(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok, nil
}

func (f *fakeStorage) size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

// recordingMailer captures sends for assertions
type recordingMailer struct {
	mu    sync.Mutex
	mails []recordedMail
}

type recordedMail struct {
	To      string
	Subject string
	Body    string
}

func (m *recordingMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mails = append(m.mails, recordedMail{To: to, Subject: subject, Body: body})
	return nil
}

func (m *recordingMailer) sent() []recordedMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]recordedMail, len(m.mails))
	copy(out, m.mails)
	return out
}

// fixtureStandardOrder builds a pending card order for one 300B amplifier
func fixtureStandardOrder() *order.Order {
	o, err := order.NewOrder("VA-2026-00101", order.TypeStandard, order.PaymentMethodCard, order.Contact{
		Name:  "Tran Minh Duc",
		Email: "duc.tran@example.vn",
		Phone: "0901234567",
	}, "12 Hang Bac, Hoan Kiem, Ha Noi", 50000, 0, 0)
	if err != nil {
		panic(err)
	}
	if _, err := o.AddItem(uuid.New(), "SE-300B Integrated Amplifier", "se-300b-integrated", 45000000, 1); err != nil {
		panic(err)
	}
	return o
}

// fixtureReservation builds a bank-transfer deposit reservation awaiting
// its deposit, due in the given window
func fixtureReservation(due time.Time) *order.Order {
	o, err := order.NewOrder("VA-2026-00202", order.TypeDepositReservation, order.PaymentMethodBankTransfer, order.Contact{
		Name:  "Le Thi Hoa",
		Email: "hoa.le@example.vn",
	}, "45 Le Loi, Da Nang", 0, 0, 0)
	if err != nil {
		panic(err)
	}
	if _, err := o.AddItem(uuid.New(), "KT88 Monoblock Pair", "kt88-monoblock-pair", 120000000, 1); err != nil {
		panic(err)
	}
	if err := o.SetDeposit(36000000, due); err != nil {
		panic(err)
	}
	if err := o.AwaitDepositTransfer(); err != nil {
		panic(err)
	}
	return o
}
