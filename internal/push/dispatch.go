package push

// deliver sends msg to every live session in recipients and returns how many
// accepted it. A failing or panicking transport only loses its own message.
func deliver(recipients []*session, msg Message) int {
	sent := 0
	for _, s := range recipients {
		if deliverOne(s, msg) {
			sent++
		}
	}
	return sent
}

func deliverOne(s *session, msg Message) (ok bool) {
	if !s.live.Load() {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	return s.conn.Send(msg) == nil
}
