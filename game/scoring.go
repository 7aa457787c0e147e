package game

import "time"

// Points awards a correct answer given after elapsed out of duration. Credit
// decays linearly from max at zero to floor at the deadline.
func Points(correct bool, elapsed, duration time.Duration, max, floor int) int {
	if !correct {
		return 0
	}
	if duration <= 0 || elapsed <= 0 {
		return max
	}
	if elapsed >= duration {
		return floor
	}
	return floor + int(int64(max-floor)*int64(duration-elapsed)/int64(duration))
}

// answerElapsed picks the time used for scoring. The server measurement is
// authoritative; a client report is only trusted when it is not later than the
// server saw the answer and lies within the latency allowance of it.
func answerElapsed(server time.Duration, clientMillis int64, allowance time.Duration) time.Duration {
	if clientMillis <= 0 {
		return server
	}
	client := time.Duration(clientMillis) * time.Millisecond
	if client <= server && server-client <= allowance {
		return client
	}
	return server
}
