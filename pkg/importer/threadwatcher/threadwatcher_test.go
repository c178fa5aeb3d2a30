package threadwatcher

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Stonedestroyer/hydrus/pkg/importer"
)

// TestMain verifies every Start goroutine in this package's tests has
// actually exited (not just been told to, via context cancellation) before
// the process reports the suite green.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeResolver struct{ jsonURL, fileBase string }

func (f fakeResolver) ThreadURLs(threadURL string) (string, string, error) {
	return f.jsonURL, f.fileBase, nil
}

type fakeHTTP struct {
	mu        sync.Mutex
	responses map[string]string
	status    map[string]int
}

func (f *fakeHTTP) DoHTTP(ctx context.Context, method, url string, opts importer.FetchOptions) (importer.FetchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	code := f.status[url]
	if code == 0 {
		code = http.StatusOK
	}
	return importer.FetchResult{
		Body:       io.NopCloser(strings.NewReader(f.responses[url])),
		StatusCode: code,
	}, nil
}

type fakeMD5Checker struct {
	mu       sync.Mutex
	statuses map[[16]byte]importer.Status
}

func (f *fakeMD5Checker) MD5Status(ctx context.Context, sum [16]byte) (importer.Status, importer.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statuses[sum], importer.Hash(sum[:]), nil
}

type fakeMediaResults struct{}

func (fakeMediaResults) MediaResults(ctx context.Context, serviceKey string, hashes []importer.Hash) ([]importer.ImportResult, error) {
	out := make([]importer.ImportResult, len(hashes))
	for i, h := range hashes {
		out[i] = importer.ImportResult{Hash: h}
	}
	return out, nil
}

type fakeFileImporter struct{ status importer.Status }

func (f fakeFileImporter) ImportFile(ctx context.Context, path string, opts importer.ImportFileOptions, tags importer.ServiceKeysToTags, wantMediaResult bool, url string) (importer.Status, importer.ImportResult, error) {
	return f.status, importer.ImportResult{Hash: importer.Hash(url), URL: url}, nil
}

type fakeTemp struct{}

func (fakeTemp) GetTempPath() (string, func(), error) {
	return "/tmp/threadwatcher-test-temp", func() {}, nil
}

type fakeBus struct {
	mu     sync.Mutex
	topics []importer.Topic
}

func (b *fakeBus) Publish(topic importer.Topic, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.topics = append(b.topics, topic)
}
func (b *fakeBus) WaitUntilEmpty(ctx context.Context) error { return nil }

func (b *fakeBus) count(topic importer.Topic) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, t := range b.topics {
		if t == topic {
			n++
		}
	}
	return n
}

func md5b64(s string) string {
	sum := md5.Sum([]byte(s))
	return base64.StdEncoding.EncodeToString(sum[:])
}

func samplePostsJSON(md5s ...string) string {
	var posts []string
	for i, m := range md5s {
		posts = append(posts, `{"tim": "`+strconv.Itoa(1000+i)+`", "ext": ".jpg", "filename": "pic`+strconv.Itoa(i)+`", "md5": "`+m+`"}`)
	}
	return `{"posts": [` + strings.Join(posts, ",") + `]}`
}

func TestWorkOnThreadDiscoversNewAttachments(t *testing.T) {
	md5Val := md5b64("file-a")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(samplePostsJSON(md5Val)))
	}))
	defer srv.Close()

	im := New(1, MinCheckPeriod, importer.ImportFileOptions{}, Deps{
		URLs:       fakeResolver{jsonURL: srv.URL, fileBase: srv.URL + "/"},
		HTTP:       &fakeHTTP{responses: map[string]string{srv.URL: samplePostsJSON(md5Val)}},
		PoliteWait: time.Millisecond,
	})
	im.SetThreadURL("https://boards.example/thread/1")

	im.workOnThread(context.Background(), "page-1")

	seeds := im.GetSeedCache().GetSeeds()
	require.Len(t, seeds, 1)
	assert.Contains(t, seeds[0], "1000.jpg")

	opts := im.GetOptions()
	assert.Equal(t, 0, opts.TimesToCheck)
}

func Test404ZeroesTimesToCheckWithOneDecrementPerUnit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	bus := &fakeBus{}
	im := New(4, MinCheckPeriod, importer.ImportFileOptions{}, Deps{
		URLs:       fakeResolver{jsonURL: srv.URL, fileBase: srv.URL + "/"},
		HTTP:       &fakeHTTP{status: map[string]int{srv.URL: http.StatusNotFound}},
		Events:     bus,
		PoliteWait: time.Millisecond,
	})
	im.SetThreadURL("https://boards.example/thread/1")

	im.workOnThread(context.Background(), "page-1")

	opts := im.GetOptions()
	// The 404 branch zeroes the 4 remaining checks, publishing one
	// decrement event per unit; the post-check step skips its own
	// decrement on this path so the count lands at exactly 0, not -1.
	assert.Equal(t, 0, opts.TimesToCheck)
	assert.Equal(t, 4, bus.count(importer.TopicDecrementTimesToCheck))

	status, _ := im.GetStatus()
	assert.Contains(t, status, "404")
}

func TestFetchFileHandlesRedundantViaMD5(t *testing.T) {
	sum := md5.Sum([]byte("known"))

	im := New(1, MinCheckPeriod, importer.ImportFileOptions{}, Deps{
		MD5s:         &fakeMD5Checker{statuses: map[[16]byte]importer.Status{sum: importer.StatusRedundant}},
		MediaResults: fakeMediaResults{},
		PoliteWait:   time.Millisecond,
	})

	doWait := false
	status, result, err := im.fetchFile(context.Background(), "https://example.org/a.jpg", sum, nil, &doWait)
	require.NoError(t, err)
	assert.Equal(t, importer.StatusRedundant, status)
	assert.False(t, doWait)
	assert.NotEmpty(t, result.Hash)
}

func TestFetchFileDownloadsNewMD5(t *testing.T) {
	sum := md5.Sum([]byte("unknown"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("bytes"))
	}))
	defer srv.Close()

	im := New(1, MinCheckPeriod, importer.ImportFileOptions{}, Deps{
		MD5s:         &fakeMD5Checker{statuses: map[[16]byte]importer.Status{}},
		HTTP:         &fakeHTTP{},
		Temp:         fakeTemp{},
		FileImporter: fakeFileImporter{status: importer.StatusSuccessful},
		PoliteWait:   time.Millisecond,
	})

	doWait := false
	status, result, err := im.fetchFile(context.Background(), srv.URL+"/a.jpg", sum, []string{"filename:a.jpg"}, &doWait)
	require.NoError(t, err)
	assert.Equal(t, importer.StatusSuccessful, status)
	assert.True(t, doWait)
	assert.Equal(t, srv.URL+"/a.jpg", result.URL)
}

func TestCheckNowHonorsMinCheckPeriod(t *testing.T) {
	im := New(0, MinCheckPeriod, importer.ImportFileOptions{}, Deps{PoliteWait: time.Millisecond})
	im.SetThreadURL("https://boards.example/thread/1")
	im.CheckNow()

	// lastChecked defaults to the zero time, which is already far more
	// than MinCheckPeriod in the past, so the one-shot should fire
	// immediately on the very first tick even with timesToCheck at 0.
	im.mu.Lock()
	due := im.checkNow && time.Since(im.lastChecked) >= MinCheckPeriod
	im.mu.Unlock()
	assert.True(t, due)
}
