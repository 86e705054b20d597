//go:build linux

package mqueue

import (
	"time"

	"golang.org/x/sys/unix"
)

// posixQueue is the Linux mq_overlay backing Queue, grounded on
// golang.org/x/sys/unix's raw mq_open/mq_timedsend/mq_timedreceive/
// mq_unlink syscalls (present in the teacher's go.mod as a transitive
// dependency of its Linux-specific profiler collectors).
type posixQueue struct {
	fd   int
	name string
}

// Open creates the queue if it does not exist and returns a handle to it.
func Open(cfg Config) (Queue, error) {
	if cfg.Name == "" || cfg.MaxMessages <= 0 || cfg.MaxMessageSize <= 0 {
		return nil, ErrInvalidParameters
	}
	attr := &unix.MqAttr{
		Maxmsg: int64(cfg.MaxMessages),
		Msgsize: int64(cfg.MaxMessageSize),
	}
	fd, err := unix.Mq_open(cfg.Name, unix.O_CREAT|unix.O_RDWR, 0644, attr)
	if err != nil {
		return nil, err
	}
	return &posixQueue{fd: fd, name: cfg.Name}, nil
}

// Send implements Queue.
func (q *posixQueue) Send(data []byte, timeout time.Duration) error {
	deadline := unix.NsecToTimespec(time.Now().Add(timeout).UnixNano())
	err := unix.Mq_timedsend(q.fd, data, 0, &deadline)
	if err == unix.ETIMEDOUT {
		return ErrTimedOut
	}
	if err == unix.EMSGSIZE {
		return ErrMessageTooLarge
	}
	return err
}

// Receive implements Queue.
func (q *posixQueue) Receive(timeout time.Duration) ([]byte, error) {
	attr, err := unix.Mq_getsetattr(q.fd, nil, nil)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, attr.Msgsize)
	deadline := unix.NsecToTimespec(time.Now().Add(timeout).UnixNano())
	n, _, err := unix.Mq_timedreceive(q.fd, buf, &deadline)
	if err == unix.ETIMEDOUT {
		return nil, ErrTimedOut
	}
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// Close implements Queue.
func (q *posixQueue) Close() error {
	return unix.Close(q.fd)
}

// Unlink implements Queue.
func (q *posixQueue) Unlink() error {
	return unix.Mq_unlink(q.name)
}
