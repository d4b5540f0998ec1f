package usecases

import (
	"context"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/tunebot/internal/modules/music/application/ports"
	"github.com/sglre6355/tunebot/internal/modules/music/domain"
)

const (
	testGuild        = snowflake.ID(1)
	testUser         = snowflake.ID(10)
	testVoiceChannel = snowflake.ID(100)
	otherChannel     = snowflake.ID(200)
	testTextChannel  = snowflake.ID(300)
)

func mockSong(name string) domain.Song {
	return domain.Song{
		Encoded:     "encoded-" + name,
		Name:        "Song " + name,
		Artist:      "Artist",
		Duration:    3 * time.Minute,
		RequesterID: testUser,
	}
}

// queueWithSongs creates a queue for testGuild holding n songs.
func queueWithSongs(n int) *domain.Queue {
	q := domain.NewQueue(testGuild, testVoiceChannel, testTextChannel)
	for i := range n {
		q.Append(mockSong(string(rune('a' + i))))
	}
	return q
}

type mockEngine struct {
	mu     sync.Mutex
	queues map[snowflake.ID]*domain.Queue

	playErr     error
	stopErr     error
	pauseErr    error
	truncateErr error
	skipErr     error

	playCalls     []string
	playOptions   []ports.PlayOptions
	stopCalls     int
	pauseCalls    int
	truncateCalls int
	skipCalls     int
}

func newMockEngine() *mockEngine {
	return &mockEngine{queues: make(map[snowflake.ID]*domain.Queue)}
}

func (m *mockEngine) GetQueue(guildID snowflake.ID) *domain.Queue {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queues[guildID]
}

func (m *mockEngine) Play(_ context.Context, query string, opts ports.PlayOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playCalls = append(m.playCalls, query)
	m.playOptions = append(m.playOptions, opts)
	return m.playErr
}

func (m *mockEngine) Stop(_ context.Context, guildID snowflake.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopCalls++
	if m.stopErr != nil {
		return m.stopErr
	}
	delete(m.queues, guildID)
	return nil
}

func (m *mockEngine) Pause(context.Context, snowflake.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauseCalls++
	return m.pauseErr
}

func (m *mockEngine) Truncate(snowflake.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.truncateCalls++
	return m.truncateErr
}

func (m *mockEngine) Skip(context.Context, snowflake.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skipCalls++
	return m.skipErr
}

// mutatingCalls returns how many state-changing engine calls were made.
func (m *mockEngine) mutatingCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.playCalls) + m.stopCalls + m.pauseCalls + m.truncateCalls + m.skipCalls
}

type mockVoiceManager struct {
	channels   map[snowflake.ID]snowflake.ID // guildID -> channelID
	leaveErr   error
	joinCalls  int
	leaveCalls int
}

func newMockVoiceManager() *mockVoiceManager {
	return &mockVoiceManager{channels: make(map[snowflake.ID]snowflake.ID)}
}

func (m *mockVoiceManager) Join(_ context.Context, guildID, channelID snowflake.ID) error {
	m.joinCalls++
	m.channels[guildID] = channelID
	return nil
}

func (m *mockVoiceManager) Leave(_ context.Context, guildID snowflake.ID) error {
	m.leaveCalls++
	if m.leaveErr != nil {
		return m.leaveErr
	}
	delete(m.channels, guildID)
	return nil
}

func (m *mockVoiceManager) Get(guildID snowflake.ID) (snowflake.ID, bool) {
	channelID, ok := m.channels[guildID]
	return channelID, ok
}

type mockVoiceStateProvider struct {
	users         map[snowflake.ID]snowflake.ID // userID -> channelID
	bots          map[snowflake.ID]snowflake.ID // guildID -> channelID
	names         map[snowflake.ID]string
	canConnect    bool
	err           error
	permissionErr error
}

func newMockVoiceStateProvider() *mockVoiceStateProvider {
	return &mockVoiceStateProvider{
		users:      make(map[snowflake.ID]snowflake.ID),
		bots:       make(map[snowflake.ID]snowflake.ID),
		names:      make(map[snowflake.ID]string),
		canConnect: true,
	}
}

func (m *mockVoiceStateProvider) UserVoiceChannel(_, userID snowflake.ID) (snowflake.ID, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.users[userID], nil
}

func (m *mockVoiceStateProvider) BotVoiceChannel(guildID snowflake.ID) (snowflake.ID, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.bots[guildID], nil
}

func (m *mockVoiceStateProvider) ChannelName(channelID snowflake.ID) string {
	return m.names[channelID]
}

func (m *mockVoiceStateProvider) CanConnectAndSpeak(snowflake.ID) (bool, error) {
	if m.permissionErr != nil {
		return false, m.permissionErr
	}
	return m.canConnect, nil
}

type mockDisconnector struct {
	err   error
	calls int
}

func (m *mockDisconnector) ForceDisconnect(context.Context, snowflake.ID) error {
	m.calls++
	return m.err
}

// immediateAfterFunc runs delayed work synchronously and records the delay.
type immediateAfterFunc struct {
	delays []time.Duration
}

func (f *immediateAfterFunc) run(d time.Duration, fn func()) {
	f.delays = append(f.delays, d)
	fn()
}
