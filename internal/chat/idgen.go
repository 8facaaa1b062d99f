package chat

import (
	"fmt"
	"sync/atomic"
	"time"
)

var messageSeq atomic.Uint64

// nextMessageID 生成进程内严格递增的消息 ID。
// 时间戳部分便于人眼排查，序号部分保证唯一和单调（时钟回拨也不受影响）。
func nextMessageID() string {
	return fmt.Sprintf("msg_%d_%08d", time.Now().UnixMilli(), messageSeq.Add(1))
}
