// Copyright 2026 The Wiring Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build linux

package sysfs

import (
	"os"
	"sync"

	"golang.org/x/sys/unix"
	"periph.io/x/conn/v3/gpio"
)

// watcher is the single process-wide delivery context for edge
// events: one epoll set over the value files of every armed pin, and
// one goroutine draining it. Arming and disarming pins while the
// goroutine is blocked in epoll_wait is safe; epoll_ctl takes effect
// immediately.
type watcher struct {
	epfd int

	mu   sync.Mutex
	byFd map[int32]*watched
}

type watched struct {
	number int
	f      *os.File
}

func newWatcher() (*watcher, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &watcher{epfd: epfd, byFd: map[int32]*watched{}}, nil
}

// add registers a pin's value file. Sysfs signals an edge as an
// exceptional condition on the value file, hence EPOLLPRI.
func (w *watcher) add(number int, f *os.File) error {
	fd := int32(f.Fd())
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.byFd[fd]; ok {
		return nil
	}
	ev := unix.EpollEvent{Events: unix.EPOLLPRI | unix.EPOLLERR, Fd: fd}
	if err := unix.EpollCtl(w.epfd, unix.EPOLL_CTL_ADD, int(fd), &ev); err != nil {
		return err
	}
	w.byFd[fd] = &watched{number: number, f: f}
	return nil
}

func (w *watcher) remove(f *os.File) error {
	fd := int32(f.Fd())
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.byFd[fd]; !ok {
		return nil
	}
	if err := unix.EpollCtl(w.epfd, unix.EPOLL_CTL_DEL, int(fd), nil); err != nil {
		return err
	}
	delete(w.byFd, fd)
	return nil
}

func (w *watcher) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = unix.Close(w.epfd)
	w.byFd = map[int32]*watched{}
}

// run drains the epoll set, reading the new level and handing
// (pin, level) to deliver, one event after another. It exits when the
// epoll fd is closed. Transitions faster than the readout are
// coalesced by the kernel; the level delivered is the one current at
// readout time.
func (w *watcher) run(deliver func(pin int, l gpio.Level)) {
	events := make([]unix.EpollEvent, 16)
	for {
		n, err := unix.EpollWait(w.epfd, events, -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return
		}
		for i := 0; i < n; i++ {
			w.mu.Lock()
			wp := w.byFd[events[i].Fd]
			w.mu.Unlock()
			if wp == nil {
				// Disarmed between wakeup and lookup.
				continue
			}
			var buf [4]byte
			if _, err := seekRead(wp.f, buf[:]); err != nil {
				continue
			}
			deliver(wp.number, gpio.Level(buf[0] == '1'))
		}
	}
}

// isErrBusy matches the EBUSY a write to /export returns when the pin
// is already exported.
func isErrBusy(err error) bool {
	if pe, ok := err.(*os.PathError); ok {
		return pe.Err == unix.EBUSY
	}
	return err == unix.EBUSY
}
