package repository

import (
	"cmp"
	"context"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/Ometra-Hela/Alize/internal/model"
)

var (
	_ IPortabilityRepository = (*MemoryStore)(nil)
	_ IMessageRepository     = (*MemoryStore)(nil)
	_ IAttachmentRepository  = (*MemoryStore)(nil)
	_ IJobLocker             = (*MemoryStore)(nil)

	_ IPortabilityRepository = (*PortabilityRepository)(nil)
	_ IMessageRepository     = (*MessageRepository)(nil)
	_ IAttachmentRepository  = (*AttachmentRepository)(nil)
	_ IJobLocker             = (*JobLockStore)(nil)
)

// MemoryStore implements every repository interface in process memory with the same
// semantics as the Postgres repositories. It backs tests and database-less runs.
type MemoryStore struct {
	mu          sync.RWMutex
	nextID      int64
	cases       map[string]*model.Portability
	numbers     map[int64][]model.PortabilityNumber
	messages    []*model.ProtocolMessage
	attachments []*model.Attachment

	keyLocks sync.Map
	jobLocks sync.Map
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cases:   make(map[string]*model.Portability),
		numbers: make(map[int64][]model.PortabilityNumber),
		now:     time.Now,
	}
}

func (m *MemoryStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *MemoryStore) Create(_ context.Context, p *model.Portability, msisdns []string) (*model.Portability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.cases[p.PortID]; exists {
		return nil, model.NewValidationError("portability %s already exists", p.PortID)
	}

	for _, c := range m.cases {
		if p.FolioID != "" && c.FolioID == p.FolioID {
			return nil, model.NewValidationError("folio %s already exists", p.FolioID)
		}
	}

	created := p.Clone()
	created.ID = m.id()
	created.CreatedAt = m.now().UTC()
	created.UpdatedAt = created.CreatedAt
	m.cases[created.PortID] = created
	m.appendNumbers(created.ID, msisdns)

	return created.Clone(), nil
}

func (m *MemoryStore) appendNumbers(portabilityID int64, msisdns []string) {
	for _, msisdn := range msisdns {
		m.numbers[portabilityID] = append(m.numbers[portabilityID], model.PortabilityNumber{
			ID:            m.id(),
			PortabilityID: portabilityID,
			MSISDN:        msisdn,
			Status:        model.NumberStatusActive,
		})
	}
}

func (m *MemoryStore) GetByPortID(_ context.Context, portID string) (*model.Portability, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.cases[portID]
	if !ok {
		return nil, model.NewNotFoundError("portability", portID)
	}

	return p.Clone(), nil
}

func (m *MemoryStore) GetByFolioID(_ context.Context, folioID string) (*model.Portability, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.cases {
		if p.FolioID == folioID {
			return p.Clone(), nil
		}
	}

	return nil, model.NewNotFoundError("portability", folioID)
}

func (m *MemoryStore) Update(_ context.Context, p *model.Portability) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.put(p)
}

func (m *MemoryStore) put(p *model.Portability) error {
	if _, ok := m.cases[p.PortID]; !ok {
		return model.NewNotFoundError("portability", p.PortID)
	}

	p.UpdatedAt = m.now().UTC()
	m.cases[p.PortID] = p.Clone()

	return nil
}

func (m *MemoryStore) lockKey(portID string) func() {
	v, _ := m.keyLocks.LoadOrStore(portID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()

	return mu.Unlock
}

// UpdateWithLock serializes callers per port id; fn sees a private copy that is stored
// only when fn succeeds.
func (m *MemoryStore) UpdateWithLock(ctx context.Context, portID string, fn func(*model.Portability) error) (*model.Portability, error) {
	unlock := m.lockKey(portID)
	defer unlock()

	p, err := m.GetByPortID(ctx, portID)
	if err != nil {
		return nil, err
	}

	if err := fn(p); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.put(p); err != nil {
		return nil, err
	}

	return p.Clone(), nil
}

func (m *MemoryStore) FindExpired(_ context.Context, timer model.Timer, now time.Time, limit int) ([]*model.Portability, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*model.Portability

	for _, p := range m.cases {
		if p.State == timer.GoverningState() && p.DeadlinePassed(timer, now) {
			result = append(result, p.Clone())
		}
	}

	slices.SortFunc(result, func(a, b *model.Portability) int {
		return a.Deadline(timer).Compare(*b.Deadline(timer))
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

func (m *MemoryStore) Numbers(_ context.Context, portabilityID int64) ([]model.PortabilityNumber, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	numbers := slices.Clone(m.numbers[portabilityID])
	slices.SortFunc(numbers, func(a, b model.PortabilityNumber) int {
		return cmp.Compare(a.MSISDN, b.MSISDN)
	})

	return numbers, nil
}

func (m *MemoryStore) AppendNumbers(_ context.Context, portabilityID int64, msisdns []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.appendNumbers(portabilityID, msisdns)

	return nil
}

func (m *MemoryStore) MarkNumbersRejected(_ context.Context, portabilityID int64, rejected []model.RejectedNumber) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var total int

	numbers := m.numbers[portabilityID]
	for _, r := range rejected {
		for i := range numbers {
			if numbers[i].MSISDN == r.MSISDN {
				numbers[i].Status = model.NumberStatusRejected
				numbers[i].RejectReason = r.ReasonCode
				total++
			}
		}
	}

	return total, nil
}

func (m *MemoryStore) RecordMessage(_ context.Context, msg *model.ProtocolMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()

	if msg.IdempotencyKey != "" {
		for _, existing := range m.messages {
			if existing.IdempotencyKey != msg.IdempotencyKey {
				continue
			}

			existing.RetryCount++
			existing.LastRetryAt = &now
			existing.AckStatus = msg.AckStatus
			existing.AckText = msg.AckText
			existing.UpdatedAt = now

			msg.ID = existing.ID
			msg.RetryCount = existing.RetryCount
			msg.CreatedAt = existing.CreatedAt
			msg.UpdatedAt = now

			return nil
		}
	}

	stored := *msg
	stored.ID = m.id()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	m.messages = append(m.messages, &stored)

	msg.ID = stored.ID
	msg.CreatedAt = now
	msg.UpdatedAt = now

	return nil
}

func (m *MemoryStore) PendingRetry(_ context.Context, maxRetries, limit int) ([]*model.ProtocolMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*model.ProtocolMessage

	for _, msg := range m.messages {
		if msg.Direction == model.DirectionOut && msg.AckStatus == model.AckStatusError && msg.RetryCount < maxRetries {
			c := *msg
			result = append(result, &c)
		}

		if limit > 0 && len(result) == limit {
			break
		}
	}

	return result, nil
}

func (m *MemoryStore) MarkSent(_ context.Context, id int64, ackText string, at time.Time) error {
	return m.updateMessage(id, func(msg *model.ProtocolMessage) {
		msg.AckStatus = model.AckStatusSuccess
		msg.AckText = ackText
		msg.SentAt = &at
	})
}

func (m *MemoryStore) IncrementRetry(_ context.Context, id int64, ackText string, at time.Time) error {
	return m.updateMessage(id, func(msg *model.ProtocolMessage) {
		msg.RetryCount++
		msg.LastRetryAt = &at
		msg.AckText = ackText
	})
}

func (m *MemoryStore) updateMessage(id int64, fn func(*model.ProtocolMessage)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, msg := range m.messages {
		if msg.ID == id {
			fn(msg)
			msg.UpdatedAt = m.now().UTC()

			return nil
		}
	}

	return model.NewNotFoundError("message", strconv.FormatInt(id, 10))
}

func (m *MemoryStore) ListByPortID(_ context.Context, portID string) ([]*model.ProtocolMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*model.ProtocolMessage

	for _, msg := range m.messages {
		if msg.PortID == portID {
			c := *msg
			result = append(result, &c)
		}
	}

	return result, nil
}

func (m *MemoryStore) CreateAttachment(_ context.Context, a *model.Attachment) (*model.Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	created := *a
	created.ID = m.id()
	created.CreatedAt = m.now().UTC()
	m.attachments = append(m.attachments, &created)

	c := created

	return &c, nil
}

func (m *MemoryStore) ListAttachments(_ context.Context, portID string) ([]*model.Attachment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*model.Attachment

	for _, a := range m.attachments {
		if a.PortID == portID {
			c := *a
			result = append(result, &c)
		}
	}

	return result, nil
}

func (m *MemoryStore) TryLockJob(_ context.Context, name string) (bool, error) {
	_, loaded := m.jobLocks.LoadOrStore(name, struct{}{})

	return !loaded, nil
}

func (m *MemoryStore) UnlockJob(_ context.Context, name string) {
	m.jobLocks.Delete(name)
}
