package atom

import (
	"context"
	"strconv"
	"time"

	"github.com/mediocregopher/atom/mdb/mredis"
)

// Response is what send_command returns to the client: the aggregated
// transport and user-level outcome of one command invocation (section 7,
// "User-visible behavior").
type Response struct {
	// Data is the response payload; empty when Err is non-nil.
	Data []byte
	// Method is the response's declared serialization method.
	Method Method
	// Acked reports whether the ACK was received before any error (useful
	// to distinguish a NoAck from a later NoResponse/UserError).
	Acked bool
	// Err is non-nil on any transport or user-level failure.
	Err *Error
}

// SendCommand implements send_command (section 4.7.2). It XADDs a request
// to command:<target>, waits for the matching ACK (budget AckTimeoutMS, or
// ackTimeoutOverrideMS if positive), and -- if block is true -- then waits
// for the matching response up to the timeout the ACK advertised.
//
// The total wait budget for each stage is enforced across the whole stage,
// not reset on every spurious XREAD wakeup (resolving Open Question (a):
// the original C implementation rereads "block" on each iteration, giving
// effectively unbounded total wait time under repeated spurious wakes).
func (e *Element) SendCommand(ctx context.Context, target, name string, data []byte, method Method, block bool, ackTimeoutOverrideMS int64) (*Response, *Error) {
	kv := []mredis.KV{
		{Key: []byte("element"), Value: []byte(e.Name)},
		{Key: []byte("cmd"), Value: []byte(name)},
		{Key: []byte("data"), Value: data},
		{Key: []byte(serKey), Value: []byte(method)},
	}
	// Capture the response stream's current tip before sending the
	// request, so the wait below starts reading strictly after it rather
	// than racing "$" against a response that arrives before the first
	// XREAD call is issued.
	waitFrom := latestID(e.wire, ResponseStreamKey(e.Name))

	cmdID, err := protocolWrite(e.wire, CommandStreamKey(target), kv, e.maxLen)
	if err != nil {
		return nil, err
	}

	ackTimeout := int64(AckTimeoutMS)
	if ackTimeoutOverrideMS > 0 {
		ackTimeout = ackTimeoutOverrideMS
	}

	ackEntry, derr := waitForMatchFrom(ctx, e.wire, ResponseStreamKey(e.Name), waitFrom, ackTimeout, func(entry Entry) bool {
		el, _ := entry.Get("element")
		id, _ := entry.Get("cmd_id")
		_, isAck := entry.Get("timeout")
		return string(el) == target && string(id) == cmdID && isAck
	})
	if derr != nil {
		return &Response{Err: newKindError(KindNoAck, "timed out waiting for ack: "+derr.Error())}, nil
	}
	if !block {
		return &Response{Acked: true}, nil
	}

	responseTimeout := int64(CommandDefaultTimeoutMS)
	if tb, ok := ackEntry.Get("timeout"); ok {
		if ms, err := strconv.ParseInt(string(tb), 10, 64); err == nil {
			responseTimeout = ms
		}
	}

	respEntry, derr := waitForMatchFrom(ctx, e.wire, ResponseStreamKey(e.Name), ackEntry.ID, responseTimeout, func(entry Entry) bool {
		el, _ := entry.Get("element")
		id, _ := entry.Get("cmd_id")
		_, isResp := entry.Get("err_code")
		return string(el) == target && string(id) == cmdID && isResp
	})
	if derr != nil {
		return &Response{Acked: true, Err: newKindError(KindNoResponse, "timed out waiting for response: "+derr.Error())}, nil
	}

	errCodeB, _ := respEntry.Get("err_code")
	errCode, _ := strconv.Atoi(string(errCodeB))
	errStrB, _ := respEntry.Get("err_str")

	resp := &Response{Acked: true, Method: respEntry.Method()}
	if respData, ok := respEntry.Get("data"); ok {
		resp.Data = respData
	}
	if errCode != 0 {
		resp.Err = ErrorFromWireCode(errCode, string(errStrB))
	}
	return resp, nil
}

// latestID returns the id of the newest entry on streamKey, or "0" if the
// stream has no entries yet (or doesn't exist), suitable as an XREAD
// starting point that excludes everything already written.
func latestID(wire *mredis.Wire, streamKey string) string {
	entries, err := wire.XRevRange(streamKey, "+", "-", 1)
	if err != nil || len(entries) == 0 {
		return "0"
	}
	return entries[0].ID
}

// waitForMatchFrom performs bounded XREADs against streamKey starting
// strictly after fromID, advancing past every entry it sees (matching or
// not) so a subsequent wait never re-examines an already-seen entry, until
// match returns true or totalTimeoutMS elapses.
func waitForMatchFrom(ctx context.Context, wire *mredis.Wire, streamKey, fromID string, totalTimeoutMS int64, match func(Entry) bool) (Entry, *Error) {
	deadline := time.Now().Add(time.Duration(totalTimeoutMS) * time.Millisecond)
	lastID := fromID

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return Entry{}, newKindError(KindInternal, "deadline exceeded")
		}
		select {
		case <-ctx.Done():
			return Entry{}, newKindError(KindInternal, "canceled: "+ctx.Err().Error())
		default:
		}

		replies, err := wire.XRead(remaining.Milliseconds(), 0, []string{streamKey}, []string{lastID})
		if err != nil {
			return Entry{}, WrapRedis(err)
		}
		if len(replies) == 0 {
			continue
		}

		for _, we := range replies[0].Entries {
			entry := fromWireEntry(we)
			lastID = entry.ID
			if match(entry) {
				return entry, nil
			}
		}
	}
}
