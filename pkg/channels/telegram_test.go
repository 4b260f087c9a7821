package channels

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mymmrac/telego"
	"github.com/mymmrac/telego/telegoapi"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhaopengme/transclaw/pkg/bus"
	"github.com/zhaopengme/transclaw/pkg/metrics"
	"github.com/zhaopengme/transclaw/pkg/retry"
)

var errConnReset = errors.New("connection reset by peer")

type fakeBot struct {
	mu sync.Mutex

	updates    []telego.Update
	updatesErr error
	gotOffset  int
	gotTimeout int

	sendErrs []error // consumed one per call
	sent     []string
	nextID   int

	editErr  error
	edited   []string
	deleteEr error
	deleted  []int
	calls    map[string]int

	file    *telego.File
	fileErr error

	downloadURL string
}

func (b *fakeBot) count(op string) {
	if b.calls == nil {
		b.calls = map[string]int{}
	}
	b.calls[op]++
}

func (b *fakeBot) GetUpdates(_ context.Context, p *telego.GetUpdatesParams) ([]telego.Update, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count("getUpdates")
	b.gotOffset = p.Offset
	b.gotTimeout = p.Timeout
	return b.updates, b.updatesErr
}

func (b *fakeBot) SendMessage(_ context.Context, p *telego.SendMessageParams) (*telego.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count("sendMessage")
	if len(b.sendErrs) > 0 {
		err := b.sendErrs[0]
		b.sendErrs = b.sendErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	b.nextID++
	b.sent = append(b.sent, p.Text)
	return &telego.Message{MessageID: b.nextID}, nil
}

func (b *fakeBot) EditMessageText(_ context.Context, p *telego.EditMessageTextParams) (*telego.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count("editMessageText")
	if b.editErr != nil {
		return nil, b.editErr
	}
	b.edited = append(b.edited, p.Text)
	return &telego.Message{MessageID: p.MessageID}, nil
}

func (b *fakeBot) DeleteMessage(_ context.Context, p *telego.DeleteMessageParams) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count("deleteMessage")
	if b.deleteEr != nil {
		return b.deleteEr
	}
	b.deleted = append(b.deleted, p.MessageID)
	return nil
}

func (b *fakeBot) GetFile(_ context.Context, _ *telego.GetFileParams) (*telego.File, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count("getFile")
	return b.file, b.fileErr
}

func (b *fakeBot) FileDownloadURL(path string) string {
	return b.downloadURL + "/" + path
}

func (b *fakeBot) callCount(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

func testOptions(t *testing.T) Options {
	return Options{
		PollTimeout:    time.Second,
		RequestTimeout: time.Second,
		TempDir:        t.TempDir(),
		MaxFileBytes:   1 << 20,
		Retry:          retry.Policy{Attempts: 3, BaseDelay: time.Millisecond},
	}
}

func TestPollBuildsEventsAndAdvancesCursor(t *testing.T) {
	bot := &fakeBot{updates: []telego.Update{
		{UpdateID: 10, Message: &telego.Message{
			MessageID: 1,
			Chat:      telego.Chat{ID: 42},
			From:      &telego.User{ID: 7, Username: "alice", FirstName: "Alice"},
			Text:      "hello",
		}},
		{UpdateID: 11}, // no message
		{UpdateID: 12, Message: &telego.Message{
			MessageID: 2,
			Chat:      telego.Chat{ID: 42},
			Photo: []telego.PhotoSize{
				{FileID: "small", FileUniqueID: "u-small"},
				{FileID: "large", FileUniqueID: "u-large"},
			},
			Caption: "look",
		}},
		{UpdateID: 13, Message: &telego.Message{MessageID: 3, Chat: telego.Chat{ID: 42}}},
	}}
	c := newClient(bot, nil, testOptions(t))

	events, next, err := c.Poll(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, 10, bot.gotOffset)
	assert.Equal(t, int64(14), next)
	require.Len(t, events, 3)

	assert.Equal(t, bus.InboundEvent{
		EventID:   10,
		ChatID:    42,
		MessageID: 1,
		Sender:    bus.Sender{ID: 7, Username: "alice", FirstName: "Alice"},
		Payload:   bus.TextPayload{RawText: "hello"},
	}, events[0])
	assert.Equal(t, bus.PhotoPayload{FileID: "large", FileUniqueID: "u-large"}, events[1].Payload)
	assert.Equal(t, bus.KindOther, events[2].Kind())
}

func TestPollFirstCallOmitsOffset(t *testing.T) {
	bot := &fakeBot{}
	c := newClient(bot, nil, testOptions(t))

	events, next, err := c.Poll(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, int64(0), next)
	assert.Equal(t, 0, bot.gotOffset)
}

func TestPollRetriesThenFails(t *testing.T) {
	bot := &fakeBot{updatesErr: errConnReset}
	c := newClient(bot, nil, testOptions(t))

	_, next, err := c.Poll(context.Background(), 5)
	assert.ErrorIs(t, err, retry.ErrExhausted)
	assert.Equal(t, int64(5), next)
	assert.Equal(t, 3, bot.callCount("getUpdates"))
}

func TestSendAlwaysFailingMakesThreeAttempts(t *testing.T) {
	before := testutil.ToFloat64(metrics.TransportFailures.WithLabelValues("sendMessage"))
	bot := &fakeBot{sendErrs: []error{errConnReset, errConnReset, errConnReset}}
	c := newClient(bot, nil, testOptions(t))

	h, err := c.Send(context.Background(), 42, "hi")

	assert.ErrorIs(t, err, retry.ErrExhausted)
	assert.True(t, h.IsZero())
	assert.Equal(t, 3, bot.callCount("sendMessage"))
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.TransportFailures.WithLabelValues("sendMessage")))
}

func TestSendRecoversFromTransientFailure(t *testing.T) {
	bot := &fakeBot{sendErrs: []error{errConnReset}}
	c := newClient(bot, nil, testOptions(t))

	h, err := c.Send(context.Background(), 42, "hi")
	require.NoError(t, err)
	assert.Equal(t, bus.MessageHandle{ChatID: 42, MessageID: 1}, h)
	assert.Equal(t, []string{"hi"}, bot.sent)
}

func TestSendRetriesRejectedRequest(t *testing.T) {
	rejected := fmt.Errorf("telego: sendMessage: api: %w", &telegoapi.Error{ErrorCode: 400, Description: "Bad Request: chat not found"})
	bot := &fakeBot{sendErrs: []error{rejected, rejected, rejected}}
	c := newClient(bot, nil, testOptions(t))

	_, err := c.Send(context.Background(), 42, "hi")
	assert.ErrorIs(t, err, retry.ErrExhausted)
	assert.Equal(t, 3, bot.callCount("sendMessage"))
}

func TestSendReportsPartialDelivery(t *testing.T) {
	bot := &fakeBot{sendErrs: []error{nil, errConnReset, errConnReset, errConnReset}}
	c := newClient(bot, nil, testOptions(t))

	line := strings.Repeat("b", 1000)
	text := strings.Join([]string{line, line, line, line, line, line}, "\n")

	h, err := c.Send(context.Background(), 42, text)
	assert.ErrorIs(t, err, bus.ErrPartialDelivery)
	assert.ErrorIs(t, err, retry.ErrExhausted)
	assert.Equal(t, 1, h.MessageID)
	assert.Len(t, bot.sent, 1)
}

func TestSendFirstChunkFailureIsNotPartial(t *testing.T) {
	bot := &fakeBot{sendErrs: []error{errConnReset, errConnReset, errConnReset}}
	c := newClient(bot, nil, testOptions(t))

	_, err := c.Send(context.Background(), 42, strings.Repeat("c", 5000))
	assert.ErrorIs(t, err, retry.ErrExhausted)
	assert.NotErrorIs(t, err, bus.ErrPartialDelivery)
}

func TestSendSplitsLongText(t *testing.T) {
	bot := &fakeBot{}
	c := newClient(bot, nil, testOptions(t))

	line := strings.Repeat("a", 1000)
	text := strings.Join([]string{line, line, line, line, line}, "\n")

	h, err := c.Send(context.Background(), 42, text)
	require.NoError(t, err)
	assert.Equal(t, 1, h.MessageID, "handle of the first chunk")
	require.Len(t, bot.sent, 2)
	for _, chunk := range bot.sent {
		assert.LessOrEqual(t, len(chunk), MaxChunkBytes)
	}
	assert.Equal(t, text, bot.sent[0]+"\n"+bot.sent[1])
}

func TestDeleteTreatsMissingMessageAsSuccess(t *testing.T) {
	bot := &fakeBot{deleteEr: errors.New("telego: deleteMessage: api: 400 \"Bad Request: message to delete not found\"")}
	c := newClient(bot, nil, testOptions(t))

	err := c.Delete(context.Background(), bus.MessageHandle{ChatID: 42, MessageID: 9})
	assert.NoError(t, err)
	assert.Equal(t, 1, bot.callCount("deleteMessage"))
}

func TestDeleteRetries(t *testing.T) {
	bot := &fakeBot{deleteEr: errConnReset}
	c := newClient(bot, nil, testOptions(t))

	err := c.Delete(context.Background(), bus.MessageHandle{ChatID: 42, MessageID: 9})
	assert.ErrorIs(t, err, retry.ErrExhausted)
	assert.Equal(t, 3, bot.callCount("deleteMessage"))
}

func TestEditIgnoresNotModified(t *testing.T) {
	bot := &fakeBot{editErr: errors.New("Bad Request: message is not modified")}
	c := newClient(bot, nil, testOptions(t))

	assert.NoError(t, c.Edit(context.Background(), bus.MessageHandle{ChatID: 1, MessageID: 2}, "same"))
	assert.Equal(t, 1, bot.callCount("editMessageText"))
}

func TestFileLocation(t *testing.T) {
	bot := &fakeBot{file: &telego.File{FileID: "F", FilePath: "photos/file_1.jpg"}}
	c := newClient(bot, nil, testOptions(t))

	path, err := c.FileLocation(context.Background(), "F")
	require.NoError(t, err)
	assert.Equal(t, "photos/file_1.jpg", path)
}

func TestFileLocationRetriesNotFound(t *testing.T) {
	notFound := fmt.Errorf("telego: getFile: api: %w", &telegoapi.Error{ErrorCode: 404, Description: "Not Found"})
	bot := &fakeBot{fileErr: notFound}
	c := newClient(bot, nil, testOptions(t))

	_, err := c.FileLocation(context.Background(), "F1")
	assert.ErrorIs(t, err, retry.ErrExhausted)
	assert.Equal(t, 3, bot.callCount("getFile"))
}

func TestConfirmSendsCursorWithoutWaiting(t *testing.T) {
	bot := &fakeBot{}
	c := newClient(bot, nil, testOptions(t))

	require.NoError(t, c.Confirm(context.Background(), 43))
	assert.Equal(t, 43, bot.gotOffset)
	assert.Equal(t, 0, bot.gotTimeout)
	assert.Equal(t, 1, bot.callCount("getUpdates"))
}

func TestFileLocationEmptyPathIsFailure(t *testing.T) {
	bot := &fakeBot{file: &telego.File{FileID: "F"}}
	c := newClient(bot, nil, testOptions(t))

	_, err := c.FileLocation(context.Background(), "F")
	assert.ErrorIs(t, err, ErrEmptyFilePath)
	assert.ErrorIs(t, err, retry.ErrExhausted)
}

func TestDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/photos/file_1.jpg" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("jpeg-bytes"))
	}))
	defer server.Close()

	opts := testOptions(t)
	bot := &fakeBot{downloadURL: server.URL}
	c := newClient(bot, server.Client(), opts)

	path, err := c.Download(context.Background(), "photos/file_1.jpg")
	require.NoError(t, err)
	defer os.Remove(path)

	assert.Contains(t, path, opts.TempDir)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))
}

func TestDownloadAlwaysFailing(t *testing.T) {
	var hits int
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	opts := testOptions(t)
	c := newClient(&fakeBot{downloadURL: server.URL}, server.Client(), opts)

	_, err := c.Download(context.Background(), "photos/x.jpg")
	assert.ErrorIs(t, err, retry.ErrExhausted)
	mu.Lock()
	assert.Equal(t, 3, hits)
	mu.Unlock()

	entries, err := os.ReadDir(opts.TempDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no partial files left behind")
}

func TestSplitText(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitText("short", 10))
	assert.Equal(t, []string{"aaaa\nbbbb", "cccc"}, splitText("aaaa\nbbbb\ncccc", 10))
	assert.Equal(t, []string{"abcdefghij", "klm"}, splitText("abcdefghijklm", 10))

	// 3-byte runes never split in the middle
	chunks := splitText(strings.Repeat("中", 5), 7)
	assert.Equal(t, []string{"中中", "中中", "中"}, chunks)
}

func TestTelegoLoggerRedactsToken(t *testing.T) {
	l := telegoLogger{token: "123:secret"}
	assert.Equal(t, "GET https://api.telegram.org/botBOT_TOKEN/getMe", l.redact("GET https://api.telegram.org/bot%s/getMe", "123:secret"))
}
