package infrastructure

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/tunebot/internal/modules/music/application/ports"
	"github.com/sglre6355/tunebot/internal/modules/music/domain"
)

const (
	engineGuild = snowflake.ID(1)
	engineVoice = snowflake.ID(100)
	engineText  = snowflake.ID(200)
	engineUser  = snowflake.ID(10)
)

type fakeBackend struct {
	mu        sync.Mutex
	results   map[string]*lavalink.LoadResult
	loadErr   error
	playErr   error
	stopErr   error
	loaded    []string
	played    []string
	stopped   int
	paused    []bool
	destroyed int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{results: make(map[string]*lavalink.LoadResult)}
}

func (f *fakeBackend) LoadTracks(_ context.Context, identifier string) (*lavalink.LoadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loaded = append(f.loaded, identifier)
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	if result, ok := f.results[identifier]; ok {
		return result, nil
	}
	return &lavalink.LoadResult{LoadType: lavalink.LoadTypeEmpty, Data: lavalink.Empty{}}, nil
}

func (f *fakeBackend) PlayTrack(_ context.Context, _ snowflake.ID, encoded string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.played = append(f.played, encoded)
	return f.playErr
}

func (f *fakeBackend) StopTrack(context.Context, snowflake.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped++
	return f.stopErr
}

func (f *fakeBackend) SetPaused(_ context.Context, _ snowflake.ID, paused bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused = append(f.paused, paused)
	return nil
}

func (f *fakeBackend) DestroyPlayer(context.Context, snowflake.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyed++
	return nil
}

type fakeVoiceConnector struct {
	joins   []snowflake.ID
	leaves  int
	joinErr error
}

func (f *fakeVoiceConnector) JoinVoice(_ context.Context, _, channelID snowflake.ID) error {
	f.joins = append(f.joins, channelID)
	return f.joinErr
}

func (f *fakeVoiceConnector) LeaveVoice(context.Context, snowflake.ID) error {
	f.leaves++
	return nil
}

type fakeListeners struct {
	count int
}

func (f *fakeListeners) HumanListeners(snowflake.ID, snowflake.ID) (int, error) {
	return f.count, nil
}

type fakeUsers struct{}

func (fakeUsers) GetUserInfo(snowflake.ID, snowflake.ID) (*ports.UserInfo, error) {
	return &ports.UserInfo{DisplayName: "nick"}, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recordingPublisher) Publish(event domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingPublisher) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.events))
	for i, e := range r.events {
		names[i] = reflect.TypeOf(e).Name()
	}
	return names
}

func (r *recordingPublisher) last() domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return nil
	}
	return r.events[len(r.events)-1]
}

type engineFixture struct {
	backend   *fakeBackend
	voice     *fakeVoiceConnector
	listeners *fakeListeners
	publisher *recordingPublisher
	engine    *QueueEngine
}

func newEngineFixture() *engineFixture {
	f := &engineFixture{
		backend:   newFakeBackend(),
		voice:     &fakeVoiceConnector{},
		listeners: &fakeListeners{count: 1},
		publisher: &recordingPublisher{},
	}
	f.engine = NewQueueEngine(
		NewMemoryRepository(),
		f.backend,
		f.voice,
		f.listeners,
		fakeUsers{},
		f.publisher,
	)
	return f
}

func playOptions() ports.PlayOptions {
	return ports.PlayOptions{
		GuildID:        engineGuild,
		VoiceChannelID: engineVoice,
		TextChannelID:  engineText,
		RequesterID:    engineUser,
	}
}

func searchResult(ids ...string) *lavalink.LoadResult {
	tracks := make(lavalink.Search, len(ids))
	for i, id := range ids {
		tracks[i] = lavalinkTrack(id, "Song "+id)
	}
	return &lavalink.LoadResult{LoadType: lavalink.LoadTypeSearch, Data: tracks}
}

func TestQueueEngine_PlayStartsIdleQueue(t *testing.T) {
	f := newEngineFixture()
	f.backend.results["ytsearch:first song"] = searchResult("a", "b")

	if err := f.engine.Play(context.Background(), "first song", playOptions()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.voice.joins) != 1 || f.voice.joins[0] != engineVoice {
		t.Errorf("expected join of %d, got %v", engineVoice, f.voice.joins)
	}
	if !reflect.DeepEqual(f.backend.played, []string{"encoded-a"}) {
		t.Errorf("expected encoded-a to play, got %v", f.backend.played)
	}

	queue := f.engine.GetQueue(engineGuild)
	if queue == nil || queue.Len() != 1 {
		t.Fatalf("expected queue with 1 song, got %v", queue)
	}
	if got := queue.Current().RequesterName; got != "nick" {
		t.Errorf("expected requester name %q, got %q", "nick", got)
	}
	if len(f.publisher.types()) != 0 {
		t.Errorf("expected no events before the track starts, got %v", f.publisher.types())
	}

	f.engine.HandleTrackStart(engineGuild)
	if _, ok := f.publisher.last().(domain.PlaySongEvent); !ok {
		t.Errorf("expected PlaySongEvent, got %v", f.publisher.types())
	}
}

func TestQueueEngine_PlayAddsToBusyQueue(t *testing.T) {
	f := newEngineFixture()
	f.backend.results["ytsearch:one"] = searchResult("a")
	f.backend.results["https://youtu.be/b"] = &lavalink.LoadResult{
		LoadType: lavalink.LoadTypeTrack,
		Data:     lavalinkTrack("b", "B"),
	}

	_ = f.engine.Play(context.Background(), "one", playOptions())
	if err := f.engine.Play(context.Background(), "https://youtu.be/b", playOptions()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.voice.joins) != 1 {
		t.Errorf("expected a single join, got %d", len(f.voice.joins))
	}
	if len(f.backend.played) != 1 {
		t.Errorf("expected the second song not to interrupt playback, got %v", f.backend.played)
	}

	event, ok := f.publisher.last().(domain.AddSongEvent)
	if !ok {
		t.Fatalf("expected AddSongEvent, got %v", f.publisher.types())
	}
	if event.Song.Name != "B" || event.Queue.Len() != 2 {
		t.Errorf("unexpected event %+v", event)
	}
}

func TestQueueEngine_PlayPlaylist(t *testing.T) {
	f := newEngineFixture()
	url := "https://youtube.com/playlist?list=PL1"
	f.backend.results[url] = &lavalink.LoadResult{
		LoadType: lavalink.LoadTypePlaylist,
		Data: lavalink.Playlist{
			Info:   lavalink.PlaylistInfo{Name: "Mix"},
			Tracks: []lavalink.Track{lavalinkTrack("a", "A"), lavalinkTrack("b", "B")},
		},
	}

	if err := f.engine.Play(context.Background(), url, playOptions()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	event, ok := f.publisher.last().(domain.AddListEvent)
	if !ok {
		t.Fatalf("expected AddListEvent, got %v", f.publisher.types())
	}
	if event.Playlist.Len() != 2 || event.Playlist.RequesterID != engineUser {
		t.Errorf("unexpected playlist %+v", event.Playlist)
	}
	if len(f.backend.played) != 1 {
		t.Errorf("expected playback to start, got %v", f.backend.played)
	}
}

func TestQueueEngine_PlayNoResults(t *testing.T) {
	f := newEngineFixture()

	err := f.engine.Play(context.Background(), "nothing matches", playOptions())
	if !errors.Is(err, ErrNoResults) {
		t.Fatalf("expected ErrNoResults, got %v", err)
	}

	event, ok := f.publisher.last().(domain.SearchNoResultEvent)
	if !ok {
		t.Fatalf("expected SearchNoResultEvent, got %v", f.publisher.types())
	}
	if event.Query != "nothing matches" || event.TextChannelID != engineText {
		t.Errorf("unexpected event %+v", event)
	}
	if f.engine.GetQueue(engineGuild) != nil {
		t.Error("expected no queue")
	}
	if len(f.voice.joins) != 0 {
		t.Errorf("expected no join for an unresolved query, got %v", f.voice.joins)
	}
	if _, connected := f.engine.Get(engineGuild); connected {
		t.Error("expected the bot not to be connected")
	}
}

func TestQueueEngine_PlayInvalidQuery(t *testing.T) {
	f := newEngineFixture()

	err := f.engine.Play(context.Background(), "scsearch:", playOptions())
	if !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
	if _, ok := f.publisher.last().(domain.SearchInvalidAnswerEvent); !ok {
		t.Errorf("expected SearchInvalidAnswerEvent, got %v", f.publisher.types())
	}
	if len(f.voice.joins) != 0 || len(f.backend.loaded) != 0 {
		t.Error("expected no join or load for an invalid query")
	}
}

func TestQueueEngine_PlayLoadException(t *testing.T) {
	f := newEngineFixture()
	f.backend.results["https://youtu.be/private"] = &lavalink.LoadResult{
		LoadType: lavalink.LoadTypeError,
		Data:     lavalink.Exception{Message: "This video is private"},
	}

	err := f.engine.Play(context.Background(), "https://youtu.be/private", playOptions())
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrLoadFailed) {
		t.Errorf("expected ErrLoadFailed, got %v", err)
	}
	if domain.ClassifyError(err) != domain.FailurePrivate {
		t.Errorf("expected private failure, got %v", domain.ClassifyError(err))
	}
	if len(f.voice.joins) != 0 {
		t.Errorf("expected no join for a failed load, got %v", f.voice.joins)
	}
}

func TestQueueEngine_PlayLoadErrorDoesNotJoin(t *testing.T) {
	f := newEngineFixture()
	f.backend.loadErr = errors.New("node unreachable")

	if err := f.engine.Play(context.Background(), "song", playOptions()); !errors.Is(err, f.backend.loadErr) {
		t.Fatalf("expected load error, got %v", err)
	}
	if len(f.voice.joins) != 0 {
		t.Errorf("expected no join, got %v", f.voice.joins)
	}
}

func TestQueueEngine_PlayFailsWhenPlaybackFails(t *testing.T) {
	f := newEngineFixture()
	f.backend.results["ytsearch:song"] = searchResult("a")
	f.backend.playErr = errors.New("node down")

	if err := f.engine.Play(context.Background(), "song", playOptions()); !errors.Is(err, f.backend.playErr) {
		t.Fatalf("expected play error, got %v", err)
	}
	if f.engine.GetQueue(engineGuild) != nil {
		t.Error("expected the queue to be dropped")
	}
	if f.voice.leaves != 1 {
		t.Errorf("expected the freshly joined channel to be left, got %d leaves", f.voice.leaves)
	}
	if _, connected := f.engine.Get(engineGuild); connected {
		t.Error("expected the bot not to stay connected")
	}
}

func TestQueueEngine_PlayFailureKeepsExistingConnection(t *testing.T) {
	f := newEngineFixture()
	if err := f.engine.Join(context.Background(), engineGuild, engineVoice); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.backend.results["ytsearch:song"] = searchResult("a")
	f.backend.playErr = errors.New("node down")

	if err := f.engine.Play(context.Background(), "song", playOptions()); err == nil {
		t.Fatal("expected error")
	}
	if f.voice.leaves != 0 {
		t.Errorf("expected a connection this call did not make to be kept, got %d leaves", f.voice.leaves)
	}
	if _, connected := f.engine.Get(engineGuild); !connected {
		t.Error("expected the bot to stay connected")
	}
}

func TestQueueEngine_TrackEndAdvancesAndFinishes(t *testing.T) {
	f := newEngineFixture()
	f.backend.results["ytsearch:one"] = searchResult("a")
	f.backend.results["ytsearch:two"] = searchResult("b")

	_ = f.engine.Play(context.Background(), "one", playOptions())
	_ = f.engine.Play(context.Background(), "two", playOptions())

	// Replaced or stopped tracks do not advance.
	f.engine.HandleTrackEnd(engineGuild, false)
	if f.engine.GetQueue(engineGuild).Len() != 2 {
		t.Fatal("expected queue to be untouched")
	}

	f.engine.HandleTrackEnd(engineGuild, true)
	if !reflect.DeepEqual(f.backend.played, []string{"encoded-a", "encoded-b"}) {
		t.Errorf("expected b to play next, got %v", f.backend.played)
	}

	f.engine.HandleTrackEnd(engineGuild, true)
	if _, ok := f.publisher.last().(domain.FinishEvent); !ok {
		t.Errorf("expected FinishEvent, got %v", f.publisher.types())
	}
	if f.engine.GetQueue(engineGuild) != nil {
		t.Error("expected the finished queue to be dropped")
	}
}

func TestQueueEngine_StopPauseTruncateSkip(t *testing.T) {
	f := newEngineFixture()
	f.backend.results["ytsearch:one"] = searchResult("a")
	f.backend.results["ytsearch:two"] = searchResult("b")
	f.backend.results["ytsearch:three"] = searchResult("c")
	for _, q := range []string{"one", "two", "three"} {
		_ = f.engine.Play(context.Background(), q, playOptions())
	}

	if err := f.engine.Pause(context.Background(), engineGuild); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.engine.GetQueue(engineGuild).IsPaused() {
		t.Error("expected queue to be paused")
	}

	if err := f.engine.Truncate(engineGuild); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.engine.GetQueue(engineGuild).Len() != 1 {
		t.Errorf("expected 1 song after truncate, got %d", f.engine.GetQueue(engineGuild).Len())
	}

	if err := f.engine.Skip(context.Background(), engineGuild); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.engine.GetQueue(engineGuild) != nil {
		t.Error("expected skip past the last song to drop the queue")
	}
	if _, ok := f.publisher.last().(domain.FinishEvent); !ok {
		t.Errorf("expected FinishEvent, got %v", f.publisher.types())
	}

	if err := f.engine.Stop(context.Background(), engineGuild); !errors.Is(err, domain.ErrQueueNotFound) {
		t.Errorf("expected ErrQueueNotFound, got %v", err)
	}
}

func TestQueueEngine_Stop(t *testing.T) {
	f := newEngineFixture()
	f.backend.results["ytsearch:one"] = searchResult("a")
	_ = f.engine.Play(context.Background(), "one", playOptions())

	f.backend.stopErr = errors.New("node down")
	if err := f.engine.Stop(context.Background(), engineGuild); err == nil {
		t.Fatal("expected error")
	}
	if f.engine.GetQueue(engineGuild) == nil {
		t.Fatal("expected the queue to survive a failed stop")
	}

	f.backend.stopErr = nil
	if err := f.engine.Stop(context.Background(), engineGuild); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.engine.GetQueue(engineGuild) != nil {
		t.Error("expected the queue to be dropped")
	}
}

func TestQueueEngine_Leave(t *testing.T) {
	f := newEngineFixture()
	f.backend.results["ytsearch:one"] = searchResult("a")
	_ = f.engine.Play(context.Background(), "one", playOptions())

	if err := f.engine.Leave(context.Background(), engineGuild); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.backend.destroyed != 1 || f.voice.leaves != 1 {
		t.Errorf("expected destroy and leave, got %d and %d", f.backend.destroyed, f.voice.leaves)
	}
	if _, ok := f.engine.Get(engineGuild); ok {
		t.Error("expected no connection after leave")
	}
	if f.engine.GetQueue(engineGuild) != nil {
		t.Error("expected no queue after leave")
	}
}

func TestQueueEngine_BotDisconnected(t *testing.T) {
	f := newEngineFixture()
	f.backend.results["ytsearch:one"] = searchResult("a")
	_ = f.engine.Play(context.Background(), "one", playOptions())

	f.engine.HandleBotVoiceChannel(engineGuild, nil)

	event, ok := f.publisher.last().(domain.DisconnectEvent)
	if !ok {
		t.Fatalf("expected DisconnectEvent, got %v", f.publisher.types())
	}
	if event.Queue.TextChannelID() != engineText {
		t.Errorf("expected text channel %d, got %d", engineText, event.Queue.TextChannelID())
	}
	if f.engine.GetQueue(engineGuild) != nil {
		t.Error("expected the queue to be dropped")
	}

	// A second disconnect has no queue to report.
	before := len(f.publisher.types())
	f.engine.HandleBotVoiceChannel(engineGuild, nil)
	if len(f.publisher.types()) != before {
		t.Error("expected no event without a queue")
	}
}

func TestQueueEngine_BotMoved(t *testing.T) {
	f := newEngineFixture()
	f.backend.results["ytsearch:one"] = searchResult("a")
	_ = f.engine.Play(context.Background(), "one", playOptions())

	moved := snowflake.ID(555)
	f.engine.HandleBotVoiceChannel(engineGuild, &moved)

	if channel, _ := f.engine.Get(engineGuild); channel != moved {
		t.Errorf("expected connection %d, got %d", moved, channel)
	}
	if f.engine.GetQueue(engineGuild).VoiceChannelID() != moved {
		t.Error("expected queue voice channel to follow the bot")
	}
}

func TestQueueEngine_EmptyPublishedOnce(t *testing.T) {
	f := newEngineFixture()
	f.backend.results["ytsearch:one"] = searchResult("a")
	_ = f.engine.Play(context.Background(), "one", playOptions())

	f.listeners.count = 0
	f.engine.HandleListenersChanged(engineGuild)
	f.engine.HandleListenersChanged(engineGuild)

	count := 0
	for _, name := range f.publisher.types() {
		if name == "EmptyEvent" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected 1 EmptyEvent, got %d", count)
	}

	// Someone comes back and leaves again.
	f.listeners.count = 1
	f.engine.HandleListenersChanged(engineGuild)
	f.listeners.count = 0
	f.engine.HandleListenersChanged(engineGuild)

	count = 0
	for _, name := range f.publisher.types() {
		if name == "EmptyEvent" {
			count++
		}
	}
	if count != 2 {
		t.Errorf("expected 2 EmptyEvents, got %d", count)
	}
}

func TestQueueEngine_ListenersReturned(t *testing.T) {
	f := newEngineFixture()
	f.backend.results["ytsearch:one"] = searchResult("a")
	_ = f.engine.Play(context.Background(), "one", playOptions())

	f.listeners.count = 0
	f.engine.HandleListenersChanged(engineGuild)
	if f.engine.HasListeners(engineGuild) {
		t.Error("expected no listeners")
	}

	f.listeners.count = 1
	f.engine.HandleListenersChanged(engineGuild)

	event, ok := f.publisher.last().(domain.ListenersReturnedEvent)
	if !ok {
		t.Fatalf("expected ListenersReturnedEvent, got %v", f.publisher.types())
	}
	if event.GuildID != engineGuild {
		t.Errorf("expected guild %d, got %d", engineGuild, event.GuildID)
	}
	if !f.engine.HasListeners(engineGuild) {
		t.Error("expected listeners")
	}

	// Further joins while occupied publish nothing.
	before := len(f.publisher.types())
	f.listeners.count = 2
	f.engine.HandleListenersChanged(engineGuild)
	if len(f.publisher.types()) != before {
		t.Errorf("expected no new events, got %v", f.publisher.types())
	}
}

func TestQueueEngine_HasListenersWithoutConnection(t *testing.T) {
	f := newEngineFixture()

	if f.engine.HasListeners(engineGuild) {
		t.Error("expected no listeners without a connection")
	}
}

func TestQueueEngine_EmptyWithoutConnectionIsIgnored(t *testing.T) {
	f := newEngineFixture()
	f.listeners.count = 0

	f.engine.HandleListenersChanged(engineGuild)

	if len(f.publisher.types()) != 0 {
		t.Errorf("expected no events, got %v", f.publisher.types())
	}
}

func TestQueueEngine_TrackException(t *testing.T) {
	f := newEngineFixture()
	f.backend.results["ytsearch:one"] = searchResult("a")
	_ = f.engine.Play(context.Background(), "one", playOptions())

	f.engine.HandleTrackException(engineGuild, "Sign in to confirm your age")

	event, ok := f.publisher.last().(domain.ErrorEvent)
	if !ok {
		t.Fatalf("expected ErrorEvent, got %v", f.publisher.types())
	}
	if event.TextChannelID != engineText {
		t.Errorf("expected text channel %d, got %d", engineText, event.TextChannelID)
	}
	if domain.ClassifyError(event.Err) != domain.FailureAgeRestricted {
		t.Errorf("expected age restricted, got %v", domain.ClassifyError(event.Err))
	}
}
