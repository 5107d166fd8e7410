package services

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"canteen-api/apperr"
	"canteen-api/events"
	"canteen-api/models"
	"canteen-api/statemachine"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderService turns carts or inline item lists into orders and drives the
// order lifecycle afterwards.
type OrderService struct {
	db              *gorm.DB
	log             *slog.Logger
	pub             events.Publisher
	producer        string
	now             func() time.Time
	restockOnCancel bool
}

type OrderOption func(*OrderService)

// WithClock replaces time.Now for placement timestamps and the
// cancellation window.
func WithClock(now func() time.Time) OrderOption {
	return func(s *OrderService) { s.now = now }
}

// WithRestockOnCancel credits cancelled quantities back to the ledger.
func WithRestockOnCancel(enabled bool) OrderOption {
	return func(s *OrderService) { s.restockOnCancel = enabled }
}

// WithProducerName sets the producer recorded on published events.
func WithProducerName(name string) OrderOption {
	return func(s *OrderService) { s.producer = name }
}

func NewOrderService(db *gorm.DB, log *slog.Logger, pub events.Publisher, opts ...OrderOption) *OrderService {
	if pub == nil {
		pub = events.Noop{}
	}
	s := &OrderService{db: db, log: log, pub: pub, producer: "canteen-api", now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LineRequest is one client-supplied order line. Only the id and quantity
// are trusted; name and price come from the catalog.
type LineRequest struct {
	MenuItemID uint
	Quantity   int
}

type PlaceOrderInput struct {
	UserID uint
	Items  []LineRequest
	Notes  string
}

type OrderQuery struct {
	Status string
	Page
}

// line is a priced, named order line ready to be written.
type line struct {
	menuItemID uint
	name       string
	price      decimal.Decimal
	qty        int
}

type placement struct {
	order    models.Order
	lowStock []models.Inventory
}

// PlaceOrder validates and decrements stock for every line and writes the
// order in one transaction. When Items is empty the user's cart is the
// source and is cleared on success.
func (s *OrderService) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*models.Order, error) {
	var p placement
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lines, cartID, err := s.resolveLines(tx, in)
		if err != nil {
			return err
		}

		need, names, err := aggregate(lines)
		if err != nil {
			return err
		}
		ids := make([]uint, 0, len(need))
		for id := range need {
			ids = append(ids, id)
		}
		ids = sortedIDs(ids)

		stock, err := loadInventories(tx, ids)
		if err != nil {
			return err
		}
		for _, id := range ids {
			inv, ok := stock[id]
			if !ok || inv.Quantity < need[id] {
				return apperr.New(apperr.KindInsufficientStock, "Insufficient stock for %s", names[id])
			}
		}

		now := s.now()
		for _, id := range ids {
			ok, err := decrementStock(tx, id, need[id], now)
			if err != nil {
				return err
			}
			if !ok {
				return apperr.New(apperr.KindInsufficientStock, "Insufficient stock for %s", names[id])
			}
			left, err := currentQuantity(tx, id)
			if err != nil {
				return err
			}
			if err := syncAvailability(tx, id, left); err != nil {
				return err
			}
			inv := stock[id]
			inv.Quantity = left
			if inv.IsLow() {
				p.lowStock = append(p.lowStock, inv)
			}
		}

		p.order = buildOrder(in.UserID, lines, in.Notes, now)
		if err := tx.Create(&p.order).Error; err != nil {
			return apperr.Internal(err, "create order")
		}
		if cartID != 0 {
			return clearCart(tx, cartID)
		}
		return nil
	})
	if err != nil {
		s.logFailure("place order failed", err, "user_id", in.UserID)
		return nil, err
	}

	s.log.Info("order placed", "order_id", p.order.ID, "user_id", in.UserID,
		"items", len(p.order.Items), "total", p.order.Total.StringFixed(2))
	s.publishPlaced(ctx, &p.order)
	for _, inv := range p.lowStock {
		s.publishLowStock(ctx, inv)
	}
	return &p.order, nil
}

// resolveLines returns the priced lines and, when the cart was used, its id.
func (s *OrderService) resolveLines(tx *gorm.DB, in PlaceOrderInput) ([]line, uint, error) {
	if len(in.Items) > 0 {
		lines, err := catalogLines(tx, in.Items)
		return lines, 0, err
	}

	cart, err := loadCart(tx, in.UserID)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, 0, apperr.New(apperr.KindEmptyCart, "Cart is empty")
	}
	if err != nil {
		return nil, 0, err
	}
	if len(cart.Items) == 0 {
		return nil, 0, apperr.New(apperr.KindEmptyCart, "Cart is empty")
	}
	lines := make([]line, len(cart.Items))
	for i, it := range cart.Items {
		lines[i] = line{menuItemID: it.MenuItemID, name: it.Name, price: it.Price, qty: it.Qty}
	}
	return lines, cart.ID, nil
}

func catalogLines(tx *gorm.DB, reqs []LineRequest) ([]line, error) {
	ids := make([]uint, 0, len(reqs))
	for _, r := range reqs {
		if r.MenuItemID == 0 {
			return nil, apperr.New(apperr.KindValidation, "menu_item_id is required")
		}
		if r.Quantity < 1 {
			return nil, apperr.New(apperr.KindValidation, "quantity must be at least 1")
		}
		if r.Quantity > MaxLineQty {
			return nil, apperr.New(apperr.KindValidation, "quantity must be at most %d", MaxLineQty)
		}
		ids = append(ids, r.MenuItemID)
	}

	var items []models.MenuItem
	if err := tx.Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, apperr.Internal(err, "load menu items")
	}
	byID := make(map[uint]models.MenuItem, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}

	lines := make([]line, len(reqs))
	for i, r := range reqs {
		item, ok := byID[r.MenuItemID]
		if !ok {
			return nil, apperr.New(apperr.KindItemNotFound, "Menu item %d not found", r.MenuItemID)
		}
		lines[i] = line{menuItemID: item.ID, name: item.Name, price: item.Price, qty: r.Quantity}
	}
	return lines, nil
}

// aggregate sums quantities per menu item, keeping the first name seen.
// Each line and each per-item total must lie in [1, MaxLineQty], so the sum
// can never wrap.
func aggregate(lines []line) (map[uint]int, map[uint]string, error) {
	need := make(map[uint]int, len(lines))
	names := make(map[uint]string, len(lines))
	for _, l := range lines {
		if l.qty < 1 || l.qty > MaxLineQty {
			return nil, nil, apperr.New(apperr.KindValidation, "quantity for %s must be between 1 and %d", l.name, MaxLineQty)
		}
		if need[l.menuItemID] > MaxLineQty-l.qty {
			return nil, nil, apperr.New(apperr.KindValidation, "total quantity for %s must be at most %d", l.name, MaxLineQty)
		}
		need[l.menuItemID] += l.qty
		if _, ok := names[l.menuItemID]; !ok {
			names[l.menuItemID] = l.name
		}
	}
	return need, names, nil
}

func buildOrder(userID uint, lines []line, notes string, now time.Time) models.Order {
	subtotal := decimal.Zero
	items := make([]models.OrderItem, len(lines))
	for i, l := range lines {
		subtotal = subtotal.Add(l.price.Mul(decimal.NewFromInt(int64(l.qty))))
		items[i] = models.OrderItem{
			MenuItemID: l.menuItemID,
			Name:       l.name,
			Price:      l.price,
			Qty:        l.qty,
			Position:   i,
		}
	}
	subtotal = models.RoundMoney(subtotal)
	return models.Order{
		UserID:    userID,
		Items:     items,
		Subtotal:  subtotal,
		Total:     subtotal,
		Status:    models.StatusPlaced,
		Notes:     notes,
		CreatedAt: now,
		UpdatedAt: now,
		StatusHistory: []models.OrderStatusHistory{{
			ToStatus:  models.StatusPlaced,
			ChangedBy: userID,
			Note:      "order placed",
			CreatedAt: now,
		}},
	}
}

// Cancel lets the owner cancel a placed order within the cancellation
// window. The status check runs against the row as it is now, so a second
// cancel reports OrderNotCancellable.
func (s *OrderService) Cancel(ctx context.Context, orderID, userID uint) (*models.Order, error) {
	var (
		order     *models.Order
		restocked bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if current.UserID != userID {
			return apperr.New(apperr.KindForbidden, "Forbidden")
		}
		now := s.now()
		if err := statemachine.CanUserCancel(current.Status, current.CreatedAt, now); err != nil {
			return err
		}
		moved, err := moveStatus(tx, current, models.StatusCancelled, userID, "cancelled by customer", now)
		if err != nil {
			return err
		}
		if !moved {
			return apperr.New(apperr.KindOrderNotCancellable, "Order cannot be cancelled at this stage")
		}
		if restocked, err = s.maybeRestock(tx, orderID, now); err != nil {
			return err
		}
		order, err = loadOrder(tx, orderID)
		return err
	})
	if err != nil {
		s.logFailure("cancel order failed", err, "order_id", orderID, "user_id", userID)
		return nil, err
	}
	s.log.Info("order cancelled", "order_id", orderID, "user_id", userID, "restocked", restocked)
	s.publishStatus(ctx, events.TopicOrderCancelled, events.EventOrderCancelled, order,
		models.StatusPlaced, userID, restocked)
	return order, nil
}

// UpdateStatus is the staff transition. Any forward move is allowed but
// served and cancelled orders are final.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uint, status string, actorID uint, note string) (*models.Order, error) {
	to, err := statemachine.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, orderID, to, actorID, note, statemachine.CanStaffTransition)
}

// ForceStatus is the admin override: enum-checked but not bound by the
// terminal rule. Forcing an order out of cancelled does not take stock again.
func (s *OrderService) ForceStatus(ctx context.Context, orderID uint, status string, actorID uint, reason string) (*models.Order, error) {
	to, err := statemachine.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, orderID, to, actorID, "[ADMIN OVERRIDE] "+reason, nil)
}

func (s *OrderService) transition(ctx context.Context, orderID uint, to models.OrderStatus, actorID uint,
	note string, allow func(from, to models.OrderStatus) error) (*models.Order, error) {
	var (
		order     *models.Order
		from      models.OrderStatus
		restocked bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		from = current.Status
		if allow != nil {
			if err := allow(from, to); err != nil {
				return err
			}
		}
		now := s.now()
		moved, err := moveStatus(tx, current, to, actorID, note, now)
		if err != nil {
			return err
		}
		if !moved {
			return apperr.New(apperr.KindInvalidStatusTransition, "order status changed concurrently; retry")
		}
		if to == models.StatusCancelled && from != models.StatusCancelled {
			if restocked, err = s.maybeRestock(tx, orderID, now); err != nil {
				return err
			}
		}
		order, err = loadOrder(tx, orderID)
		return err
	})
	if err != nil {
		s.logFailure("order status update failed", err, "order_id", orderID, "actor_id", actorID, "to", to)
		return nil, err
	}

	s.log.Info("order status changed", "order_id", orderID, "from", from, "to", to, "actor_id", actorID)
	topic, evType := events.TopicOrderStatusChanged, events.EventOrderStatusChanged
	if to == models.StatusCancelled {
		topic, evType = events.TopicOrderCancelled, events.EventOrderCancelled
	}
	s.publishStatus(ctx, topic, evType, order, from, actorID, restocked)
	return order, nil
}

// moveStatus writes the new status only if the row still holds the status
// that was checked, and appends the history entry.
func moveStatus(tx *gorm.DB, current *models.Order, to models.OrderStatus, actorID uint, note string, now time.Time) (bool, error) {
	res := tx.Model(&models.Order{}).
		Where("id = ? AND status = ?", current.ID, current.Status).
		Updates(map[string]any{"status": to, "updated_at": now})
	if res.Error != nil {
		return false, apperr.Internal(res.Error, "update order status")
	}
	if res.RowsAffected != 1 {
		return false, nil
	}
	history := models.OrderStatusHistory{
		OrderID:    current.ID,
		FromStatus: current.Status,
		ToStatus:   to,
		ChangedBy:  actorID,
		Note:       note,
		CreatedAt:  now,
	}
	if err := tx.Create(&history).Error; err != nil {
		return false, apperr.Internal(err, "record status history")
	}
	return true, nil
}

func (s *OrderService) maybeRestock(tx *gorm.DB, orderID uint, now time.Time) (bool, error) {
	if !s.restockOnCancel {
		return false, nil
	}
	var items []models.OrderItem
	if err := tx.Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return false, apperr.Internal(err, "load order items")
	}
	credit := make(map[uint]int, len(items))
	ids := make([]uint, 0, len(items))
	for _, it := range items {
		if _, ok := credit[it.MenuItemID]; !ok {
			ids = append(ids, it.MenuItemID)
		}
		credit[it.MenuItemID] += it.Qty
	}
	ids = sortedIDs(ids)
	stock, err := loadInventories(tx, ids)
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		if _, ok := stock[id]; !ok {
			continue
		}
		if err := creditStock(tx, id, credit[id], now); err != nil {
			return false, err
		}
		qty, err := currentQuantity(tx, id)
		if err != nil {
			return false, err
		}
		if err := syncAvailability(tx, id, qty); err != nil {
			return false, err
		}
	}
	return true, nil
}

// ListForUser returns the user's own orders, newest first.
func (s *OrderService) ListForUser(ctx context.Context, userID uint, q OrderQuery) ([]models.Order, int64, Page, error) {
	page := q.Page.normalize(10, 100)
	query := s.db.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID)
	return s.list(query, q.Status, page)
}

// List returns every order for the kitchen view, newest first.
func (s *OrderService) List(ctx context.Context, q OrderQuery) ([]models.Order, int64, Page, error) {
	page := q.Page.normalize(20, 100)
	return s.list(s.db.WithContext(ctx).Model(&models.Order{}), q.Status, page)
}

func (s *OrderService) list(query *gorm.DB, status string, page Page) ([]models.Order, int64, Page, error) {
	if status != "" {
		st, err := statemachine.ParseStatus(status)
		if err != nil {
			return nil, 0, page, err
		}
		query = query.Where("status = ?", st)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, page, apperr.Internal(err, "count orders")
	}
	var orders []models.Order
	err := query.Preload("Items", orderItemsByPosition).
		Order("created_at DESC, id DESC").
		Offset(page.offset()).Limit(page.Limit).Find(&orders).Error
	if err != nil {
		return nil, 0, page, apperr.Internal(err, "list orders")
	}
	return orders, total, page, nil
}

// GetForUser returns one of the user's orders; other users' orders are
// Forbidden rather than NotFound.
func (s *OrderService) GetForUser(ctx context.Context, orderID, userID uint) (*models.Order, error) {
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, apperr.New(apperr.KindForbidden, "Forbidden")
	}
	return order, nil
}

func (s *OrderService) Get(ctx context.Context, orderID uint) (*models.Order, error) {
	return loadOrder(s.db.WithContext(ctx), orderID)
}

func orderItemsByPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position, id")
}

func loadOrder(tx *gorm.DB, orderID uint) (*models.Order, error) {
	var order models.Order
	err := tx.Preload("Items", orderItemsByPosition).
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("created_at, id") }).
		First(&order, orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.KindNotFound, "Order not found")
	}
	if err != nil {
		return nil, apperr.Internal(err, "load order")
	}
	return &order, nil
}

func lockOrder(tx *gorm.DB, orderID uint) (*models.Order, error) {
	var order models.Order
	err := lockForUpdate(tx).First(&order, orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.KindNotFound, "Order not found")
	}
	if err != nil {
		return nil, apperr.Internal(err, "load order")
	}
	return &order, nil
}

func (s *OrderService) logFailure(msg string, err error, attrs ...any) {
	attrs = append(attrs, "kind", apperr.KindOf(err), "error", err)
	if apperr.KindOf(err) == apperr.KindInternal {
		s.log.Error(msg, attrs...)
		return
	}
	s.log.Warn(msg, attrs...)
}

func (s *OrderService) publishPlaced(ctx context.Context, o *models.Order) {
	lines := make([]events.LineQty, len(o.Items))
	for i, it := range o.Items {
		lines[i] = events.LineQty{MenuItemID: it.MenuItemID, Qty: it.Qty}
	}
	s.emit(ctx, events.TopicOrderPlaced, events.EventOrderPlaced, orderKey(o.ID), events.OrderPlacedPayload{
		OrderID: o.ID,
		UserID:  o.UserID,
		Items:   lines,
		Total:   o.Total.StringFixed(2),
	})
}

func (s *OrderService) publishStatus(ctx context.Context, topic, evType string, o *models.Order,
	from models.OrderStatus, actorID uint, restocked bool) {
	s.emit(ctx, topic, evType, orderKey(o.ID), events.OrderStatusPayload{
		OrderID:   o.ID,
		UserID:    o.UserID,
		From:      string(from),
		To:        string(o.Status),
		ChangedBy: actorID,
		Restocked: restocked,
	})
}

func (s *OrderService) publishLowStock(ctx context.Context, inv models.Inventory) {
	key := strconv.FormatUint(uint64(inv.MenuItemID), 10)
	s.emit(ctx, events.TopicInventoryLowStock, events.EventInventoryLowStock, key, events.LowStockPayload{
		MenuItemID: inv.MenuItemID,
		Quantity:   inv.Quantity,
		Threshold:  inv.LowStockThreshold,
	})
}

// emit never fails the request; the order is already committed.
func (s *OrderService) emit(ctx context.Context, topic, evType, key string, payload any) {
	ev, err := events.NewEnvelope(evType, s.producer, key, payload)
	if err == nil {
		err = s.pub.Publish(ctx, topic, key, ev)
	}
	if err != nil {
		s.log.Error("publish event failed", "topic", topic, "key", key, "error", err)
	}
}

func orderKey(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
