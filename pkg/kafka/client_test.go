package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"doc-qa-go/pkg/database"
	"doc-qa-go/pkg/tasks"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFetcher 按脚本回放拉取结果：先返回 fetchErrs 次错误，再依次返回
// messages 中的消息，消息耗尽后取消上下文结束循环。
type fakeFetcher struct {
	fetchErrs int
	messages  []kafka.Message
	cancel    context.CancelFunc

	fetchCalls int
	committed  []kafka.Message
}

func (f *fakeFetcher) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if ctx.Err() != nil {
		return kafka.Message{}, ctx.Err()
	}
	f.fetchCalls++
	if f.fetchCalls <= f.fetchErrs {
		return kafka.Message{}, errors.New("broker unavailable")
	}
	if len(f.messages) > 0 {
		m := f.messages[0]
		f.messages = f.messages[1:]
		return m, nil
	}
	f.cancel()
	return kafka.Message{}, context.Canceled
}

func (f *fakeFetcher) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.committed = append(f.committed, msgs...)
	return nil
}

type fakeTaskProcessor struct {
	processed []tasks.DocumentProcessingTask
}

func (f *fakeTaskProcessor) Process(ctx context.Context, task tasks.DocumentProcessingTask) error {
	f.processed = append(f.processed, task)
	return nil
}

func TestConsumeLoopRetriesAfterFetchErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 连续三次拉取失败后消息耗尽，循环应退避重试而不是终止
	fetcher := &fakeFetcher{fetchErrs: 3, cancel: cancel}
	processor := &fakeTaskProcessor{}

	consumeLoop(ctx, fetcher, processor, time.Millisecond)

	assert.GreaterOrEqual(t, fetcher.fetchCalls, 4)
	assert.Empty(t, processor.processed)
}

func TestConsumeLoopCommitsMalformedMessage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := &fakeFetcher{
		messages: []kafka.Message{{Offset: 7, Value: []byte("not json")}},
		cancel:   cancel,
	}
	processor := &fakeTaskProcessor{}

	consumeLoop(ctx, fetcher, processor, time.Millisecond)

	// 格式错误的消息被直接提交，且不会进入处理流程
	require.Len(t, fetcher.committed, 1)
	assert.Equal(t, int64(7), fetcher.committed[0].Offset)
	assert.Empty(t, processor.processed)
}

func TestConsumeLoopProcessesAndCommitsTask(t *testing.T) {
	// Del 的失败会被忽略，指向不可达地址即可
	database.RDB = redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})

	task := tasks.DocumentProcessingTask{ProjectCode: "proj1", ObjectName: "projects/proj1/doc.pdf", FileName: "doc.pdf"}
	value, err := json.Marshal(task)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := &fakeFetcher{
		messages: []kafka.Message{{Offset: 3, Value: value}},
		cancel:   cancel,
	}
	processor := &fakeTaskProcessor{}

	consumeLoop(ctx, fetcher, processor, time.Millisecond)

	require.Len(t, processor.processed, 1)
	assert.Equal(t, "proj1", processor.processed[0].ProjectCode)
	require.Len(t, fetcher.committed, 1)
	assert.Equal(t, int64(3), fetcher.committed[0].Offset)
}
