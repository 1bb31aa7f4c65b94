package queue

import "time"

// stallLoop watches running jobs' heartbeats. A job whose heartbeat is
// older than the threshold lost its worker; the job is re-queued so
// another worker picks it up, unless its kind allows only one attempt.
func (q *Queue) stallLoop() {
	ticker := time.NewTicker(q.stallInterval)
	defer ticker.Stop()
	for {
		select {
		case <-q.stop:
			return
		case <-ticker.C:
			q.sweepStalled()
		}
	}
}

func (q *Queue) sweepStalled() {
	now := time.Now()

	q.mu.Lock()
	var stalled []*task
	for id, beat := range q.heartbeats {
		if now.Sub(beat) <= q.stallThreshold {
			continue
		}
		t := q.running[id]
		if t == nil {
			delete(q.heartbeats, id)
			continue
		}
		delete(q.running, id)
		delete(q.heartbeats, id)
		stalled = append(stalled, t)
	}
	q.mu.Unlock()

	for _, t := range stalled {
		q.mu.Lock()
		reg := q.procs[t.job.Kind]
		subs := make([]EventFunc, len(q.events))
		copy(subs, q.events)
		closed := q.closed
		q.mu.Unlock()

		if closed || uint(t.attempts) >= reg.attempts {
			q.mu.Lock()
			delete(q.active, t.job.ID)
			q.mu.Unlock()
			q.logger.Error("stalled job abandoned", "job_id", t.job.ID, "kind", t.job.Kind, "attempts", t.attempts)
			ev := Event{JobID: t.job.ID, Kind: t.job.Kind, Err: ErrStalled, Attempts: t.attempts}
			for _, fn := range subs {
				fn(ev)
			}
			continue
		}

		q.logger.Warn("stalled job re-queued", "job_id", t.job.ID, "kind", t.job.Kind, "attempts", t.attempts)
		select {
		case q.ch <- t:
		default:
			q.logger.Error("queue full, dropping stalled job", "job_id", t.job.ID)
			q.mu.Lock()
			delete(q.active, t.job.ID)
			q.mu.Unlock()
		}
	}
}
