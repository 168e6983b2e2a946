package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"satya-chat/internal/domain"
	"satya-chat/internal/repository"
)

type mockUserRepo struct {
	users map[int64]domain.User
	err   error
}

func (m *mockUserRepo) GetByID(_ context.Context, id int64) (domain.User, error) {
	if m.err != nil {
		return domain.User{}, m.err
	}
	user, ok := m.users[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (m *mockUserRepo) SearchNewContacts(_ context.Context, _ int64, _ string, _ int) ([]domain.User, error) {
	return nil, nil
}

type mockConversationRepo struct {
	mu           sync.Mutex
	pairs        map[string]int64
	nextID       int64
	participants map[int64][]int64
	createCalls  int
	findMisses   int
}

func newMockConversationRepo() *mockConversationRepo {
	return &mockConversationRepo{
		pairs:        make(map[string]int64),
		participants: make(map[int64][]int64),
		nextID:       1,
	}
}

func (m *mockConversationRepo) FindByPair(_ context.Context, a, b int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findMisses > 0 {
		m.findMisses--
		return 0, pgx.ErrNoRows
	}
	id, ok := m.pairs[repository.PairKey(a, b)]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	return id, nil
}

// CreatePair se comporta como el store real: el primer insert del par
// gana y los siguientes chocan con el índice único.
func (m *mockConversationRepo) CreatePair(_ context.Context, a, b int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	key := repository.PairKey(a, b)
	if _, ok := m.pairs[key]; ok {
		return 0, repository.ErrDuplicatePair
	}
	id := m.nextID
	m.nextID++
	m.pairs[key] = id
	m.participants[id] = []int64{a, b}
	return id, nil
}

func (m *mockConversationRepo) Participants(_ context.Context, conversationID int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.participants[conversationID], nil
}

func (m *mockConversationRepo) AllSummaries(_ context.Context, _ int64) ([]domain.ConversationSummary, error) {
	return nil, nil
}

func (m *mockConversationRepo) UnreadSummaries(_ context.Context, _ int64) ([]domain.UnreadConversation, error) {
	return nil, nil
}

func (m *mockConversationRepo) SearchSummaries(_ context.Context, _ int64, _ string) ([]domain.ConversationSummary, error) {
	return nil, nil
}

func twoUsers() *mockUserRepo {
	return &mockUserRepo{users: map[int64]domain.User{
		1: {ID: 1, Username: "alice", Photo: "alice.png"},
		2: {ID: 2, Username: "bob", Photo: "bob.png"},
	}}
}

func TestGetOrCreateRejectsSelfConversation(t *testing.T) {
	svc := NewConversationService(zap.NewNop(), twoUsers(), newMockConversationRepo())

	_, err := svc.GetOrCreate(context.Background(), 1, 1)
	if !errors.Is(err, domain.ErrSelfConversation) {
		t.Fatalf("expected ErrSelfConversation, got %v", err)
	}
}

func TestGetOrCreateRejectsUnknownUsers(t *testing.T) {
	svc := NewConversationService(zap.NewNop(), twoUsers(), newMockConversationRepo())

	if _, err := svc.GetOrCreate(context.Background(), 1, 99); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for unknown recipient, got %v", err)
	}
	if _, err := svc.GetOrCreate(context.Background(), 99, 1); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for unknown caller, got %v", err)
	}
}

func TestGetOrCreateCreatesThenReuses(t *testing.T) {
	convRepo := newMockConversationRepo()
	svc := NewConversationService(zap.NewNop(), twoUsers(), convRepo)

	first, err := svc.GetOrCreate(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if first.RecipientUsername != "bob" || first.RecipientPhoto != "bob.png" {
		t.Fatalf("expected recipient identity, got %+v", first)
	}

	// Repetir la llamada, incluso con los usuarios invertidos, devuelve
	// siempre la misma conversación sin crear otra.
	second, err := svc.GetOrCreate(context.Background(), 2, 1)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if second.ConversationID != first.ConversationID {
		t.Fatalf("expected same conversation, got %d and %d", first.ConversationID, second.ConversationID)
	}
	if convRepo.createCalls != 1 {
		t.Fatalf("expected exactly one create, got %d", convRepo.createCalls)
	}
}

func TestGetOrCreateResolvesDuplicateRace(t *testing.T) {
	convRepo := newMockConversationRepo()
	// Simula al perdedor de la carrera: el ganador insertó el par entre
	// la consulta de existencia y el insert, así que el primer FindByPair
	// no ve nada y CreatePair choca con el índice único.
	convRepo.pairs[repository.PairKey(1, 2)] = 7
	convRepo.findMisses = 1

	svc := NewConversationService(zap.NewNop(), twoUsers(), convRepo)

	info, err := svc.GetOrCreate(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("expected race to resolve by re-read, got %v", err)
	}
	if info.ConversationID != 7 {
		t.Fatalf("expected winner's conversation id 7, got %d", info.ConversationID)
	}
}

func TestGetOrCreateConcurrentCallersConverge(t *testing.T) {
	convRepo := newMockConversationRepo()
	svc := NewConversationService(zap.NewNop(), twoUsers(), convRepo)

	const callers = 16
	ids := make([]int64, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			info, err := svc.GetOrCreate(context.Background(), 1, 2)
			if err != nil {
				t.Errorf("caller %d: unexpected error %v", i, err)
				return
			}
			ids[i] = info.ConversationID
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("caller %d got conversation %d, want %d", i, ids[i], ids[0])
		}
	}
	if len(convRepo.pairs) != 1 {
		t.Fatalf("expected exactly one conversation row, got %d", len(convRepo.pairs))
	}
}

func TestParticipantsUnknownConversation(t *testing.T) {
	svc := NewConversationService(zap.NewNop(), twoUsers(), newMockConversationRepo())

	if _, err := svc.Participants(context.Background(), 42); !errors.Is(err, domain.ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
}
