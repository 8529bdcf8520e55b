package service

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/solnyshko/kidsbooking/internal/model"
)

// fakeStore реализация порта Store в памяти. Транзакции сериализуются
// мьютексом, откат восстанавливает снимок состояния — этого достаточно,
// чтобы проверять свойства движка без Postgres.
type fakeStore struct {
	txMu sync.Mutex // сериализует транзакции
	mu   sync.Mutex // защищает состояние

	slots           map[int64]*model.Slot
	bookings        map[int64]*model.Booking
	bookingSlots    map[int64][]int64
	bookingChildren map[int64][]int64
	childOwners     map[int64]int64 // child id -> user id

	nextSlotID    int64
	nextBookingID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		slots:           make(map[int64]*model.Slot),
		bookings:        make(map[int64]*model.Booking),
		bookingSlots:    make(map[int64][]int64),
		bookingChildren: make(map[int64][]int64),
		childOwners:     make(map[int64]int64),
	}
}

func (f *fakeStore) WithSerializable(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	f.txMu.Lock()
	defer f.txMu.Unlock()

	snap := f.snapshot()
	if err := fn(ctx, &fakeTx{f: f}); err != nil {
		f.restore(snap)
		return err
	}
	return nil
}

func (f *fakeStore) Read() Tx {
	return &fakeTx{f: f}
}

type fakeSnapshot struct {
	slots           map[int64]*model.Slot
	bookings        map[int64]*model.Booking
	bookingSlots    map[int64][]int64
	bookingChildren map[int64][]int64
}

func (f *fakeStore) snapshot() fakeSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	snap := fakeSnapshot{
		slots:           make(map[int64]*model.Slot, len(f.slots)),
		bookings:        make(map[int64]*model.Booking, len(f.bookings)),
		bookingSlots:    make(map[int64][]int64, len(f.bookingSlots)),
		bookingChildren: make(map[int64][]int64, len(f.bookingChildren)),
	}
	for id, s := range f.slots {
		snap.slots[id] = cloneSlot(s)
	}
	for id, b := range f.bookings {
		snap.bookings[id] = cloneBooking(b)
	}
	for id, ids := range f.bookingSlots {
		snap.bookingSlots[id] = slices.Clone(ids)
	}
	for id, ids := range f.bookingChildren {
		snap.bookingChildren[id] = slices.Clone(ids)
	}
	return snap
}

func (f *fakeStore) restore(snap fakeSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.slots = snap.slots
	f.bookings = snap.bookings
	f.bookingSlots = snap.bookingSlots
	f.bookingChildren = snap.bookingChildren
}

// addSlot кладёт слот напрямую, минуя админские операции
func (f *fakeStore) addSlot(s *model.Slot) *model.Slot {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextSlotID++
	s.ID = f.nextSlotID
	f.slots[s.ID] = cloneSlot(s)
	return s
}

func (f *fakeStore) addChild(childID, userID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.childOwners[childID] = userID
}

// forceAvailable подменяет остаток слота в обход движка (для проверок зажима)
func (f *fakeStore) forceAvailable(slotID int64, available int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slots[slotID].Available = available
}

func (f *fakeStore) slotAvailable(slotID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.slots[slotID].Available
}

func cloneSlot(s *model.Slot) *model.Slot {
	c := *s
	if s.Hour != nil {
		h := *s.Hour
		c.Hour = &h
	}
	return &c
}

func cloneBooking(b *model.Booking) *model.Booking {
	c := *b
	if b.UserID != nil {
		id := *b.UserID
		c.UserID = &id
	}
	c.SlotIDs = slices.Clone(b.SlotIDs)
	c.ChildIDs = slices.Clone(b.ChildIDs)
	c.Slots = nil
	return &c
}

// fakeTx операции над состоянием fakeStore. Чтения возвращают копии,
// как свежепрочитанные строки из базы.
type fakeTx struct {
	f *fakeStore
}

func (t *fakeTx) CreateSlot(ctx context.Context, slot *model.Slot) error {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()

	t.f.nextSlotID++
	slot.ID = t.f.nextSlotID
	slot.CreatedAt = time.Now()
	t.f.slots[slot.ID] = cloneSlot(slot)
	return nil
}

func (t *fakeTx) SlotByID(ctx context.Context, id int64) (*model.Slot, error) {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()

	s, ok := t.f.slots[id]
	if !ok {
		return nil, nil
	}
	return cloneSlot(s), nil
}

func (t *fakeTx) SlotsByIDs(ctx context.Context, ids []int64) ([]*model.Slot, error) {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()

	var out []*model.Slot
	for _, id := range ids {
		if s, ok := t.f.slots[id]; ok {
			out = append(out, cloneSlot(s))
		}
	}
	sortSlots(out)
	return out, nil
}

func (t *fakeTx) OpenDaycareSlots(ctx context.Context, from, to time.Time) ([]*model.Slot, error) {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()

	var out []*model.Slot
	for _, s := range t.f.slots {
		if s.Kind == model.KindDaycare && s.Status == model.SlotStatusOpen &&
			!s.StartTime.Before(from) && s.StartTime.Before(to) {
			out = append(out, cloneSlot(s))
		}
	}
	sortSlots(out)
	return out, nil
}

func (t *fakeTx) SlotsInRange(ctx context.Context, kind model.ResourceKind, from, to time.Time) ([]*model.Slot, error) {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()

	var out []*model.Slot
	for _, s := range t.f.slots {
		if s.Kind == kind && !s.StartTime.Before(from) && s.StartTime.Before(to) {
			out = append(out, cloneSlot(s))
		}
	}
	sortSlots(out)
	return out, nil
}

func (t *fakeTx) OverlappingSlots(ctx context.Context, kind model.ResourceKind, excludeID int64, date, start, end time.Time) ([]*model.Slot, error) {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()

	var out []*model.Slot
	for _, s := range t.f.slots {
		if s.Kind != kind || s.ID == excludeID || !s.Date.Equal(date) {
			continue
		}
		if !s.StartTime.After(end) && !s.EndTime.Before(start) {
			out = append(out, cloneSlot(s))
		}
	}
	sortSlots(out)
	return out, nil
}

func (t *fakeTx) UpdateSlot(ctx context.Context, slot *model.Slot) error {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()

	if _, ok := t.f.slots[slot.ID]; !ok {
		return model.ErrSlotNotFound
	}
	t.f.slots[slot.ID] = cloneSlot(slot)
	return nil
}

func (t *fakeTx) SetSlotAvailable(ctx context.Context, id int64, available int) error {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()

	s, ok := t.f.slots[id]
	if !ok {
		return model.ErrSlotNotFound
	}
	s.Available = available
	return nil
}

func (t *fakeTx) DeleteSlots(ctx context.Context, ids []int64) error {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()

	for _, id := range ids {
		delete(t.f.slots, id)
	}
	return nil
}

func (t *fakeTx) CreateBooking(ctx context.Context, b *model.Booking) error {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()

	t.f.nextBookingID++
	b.ID = t.f.nextBookingID
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	t.f.bookings[b.ID] = cloneBooking(b)
	return nil
}

func (t *fakeTx) BookingByID(ctx context.Context, id int64) (*model.Booking, error) {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	return t.bookingWithLinks(id), nil
}

func (t *fakeTx) bookingWithLinks(id int64) *model.Booking {
	b, ok := t.f.bookings[id]
	if !ok {
		return nil
	}
	c := cloneBooking(b)
	c.SlotIDs = slices.Clone(t.f.bookingSlots[id])
	c.ChildIDs = slices.Clone(t.f.bookingChildren[id])
	return c
}

func (t *fakeTx) BookingByReference(ctx context.Context, reference string) (*model.Booking, error) {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()

	for id, b := range t.f.bookings {
		if b.Reference != "" && b.Reference == reference {
			return t.bookingWithLinks(id), nil
		}
	}
	return nil, nil
}

func (t *fakeTx) UpdateBooking(ctx context.Context, b *model.Booking) error {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()

	if _, ok := t.f.bookings[b.ID]; !ok {
		return model.ErrBookingNotFound
	}
	b.UpdatedAt = time.Now()
	t.f.bookings[b.ID] = cloneBooking(b)
	return nil
}

func (t *fakeTx) UpdateBookingStatus(ctx context.Context, id int64, status model.BookingStatus) error {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()

	b, ok := t.f.bookings[id]
	if !ok {
		return model.ErrBookingNotFound
	}
	b.Status = status
	b.UpdatedAt = time.Now()
	return nil
}

func (t *fakeTx) DeleteBooking(ctx context.Context, id int64) error {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()

	if _, ok := t.f.bookings[id]; !ok {
		return model.ErrBookingNotFound
	}
	delete(t.f.bookings, id)
	return nil
}

func (t *fakeTx) LinkSlots(ctx context.Context, bookingID int64, slotIDs []int64) error {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	t.f.bookingSlots[bookingID] = append(t.f.bookingSlots[bookingID], slotIDs...)
	return nil
}

func (t *fakeTx) UnlinkSlots(ctx context.Context, bookingID int64) error {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	delete(t.f.bookingSlots, bookingID)
	return nil
}

func (t *fakeTx) LinkChildren(ctx context.Context, bookingID int64, childIDs []int64) error {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	t.f.bookingChildren[bookingID] = append(t.f.bookingChildren[bookingID], childIDs...)
	return nil
}

func (t *fakeTx) UnlinkChildren(ctx context.Context, bookingID int64) error {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	delete(t.f.bookingChildren, bookingID)
	return nil
}

func (t *fakeTx) HasActiveBookingOnSlots(ctx context.Context, userID *int64, guestEmail string, slotIDs []int64, excludeID int64) (bool, error) {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()

	for id, b := range t.f.bookings {
		if id == excludeID || !b.Status.Active() {
			continue
		}
		sameOwner := false
		if b.UserID != nil && userID != nil && *b.UserID == *userID {
			sameOwner = true
		}
		if b.UserID == nil && guestEmail != "" && b.Guest.Email == guestEmail {
			sameOwner = true
		}
		if !sameOwner {
			continue
		}
		for _, linked := range t.f.bookingSlots[id] {
			if slices.Contains(slotIDs, linked) {
				return true, nil
			}
		}
	}
	return false, nil
}

func (t *fakeTx) ActiveBookingCount(ctx context.Context, slotID int64) (int, error) {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()

	count := 0
	for id, b := range t.f.bookings {
		if !b.Status.Active() {
			continue
		}
		if slices.Contains(t.f.bookingSlots[id], slotID) {
			count++
		}
	}
	return count, nil
}

func (t *fakeTx) BookingsByUser(ctx context.Context, userID int64) ([]*model.Booking, error) {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()

	var out []*model.Booking
	for id, b := range t.f.bookings {
		if b.OwnedByUser(userID) {
			out = append(out, t.bookingWithLinks(id))
		}
	}
	return out, nil
}

func (t *fakeTx) AllBookings(ctx context.Context) ([]*model.Booking, error) {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()

	var out []*model.Booking
	for id := range t.f.bookings {
		out = append(out, t.bookingWithLinks(id))
	}
	return out, nil
}

func (t *fakeTx) ElapsedBookings(ctx context.Context, now time.Time) ([]*model.Booking, error) {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()

	var out []*model.Booking
	for id, b := range t.f.bookings {
		if b.Status.Active() && b.EndTime.Before(now) {
			out = append(out, t.bookingWithLinks(id))
		}
	}
	return out, nil
}

func (t *fakeTx) ChildrenBelongToUser(ctx context.Context, userID int64, childIDs []int64) (bool, error) {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()

	if len(childIDs) == 0 {
		return false, nil
	}
	for _, id := range childIDs {
		if t.f.childOwners[id] != userID {
			return false, nil
		}
	}
	return true, nil
}

func sortSlots(slots []*model.Slot) {
	slices.SortFunc(slots, func(a, b *model.Slot) int {
		return a.StartTime.Compare(b.StartTime)
	})
}
