package server

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/daniil11ru/fleetcontrol/cli/receiver/domain"
	"github.com/daniil11ru/fleetcontrol/cli/receiver/observability"
	"github.com/daniil11ru/fleetcontrol/libs/itriangle"
	log "github.com/sirupsen/logrus"
)

const (
	readBufferSize      = 4096
	defaultWriteTimeout = 10 * time.Second
	keepAlivePeriod     = 60 * time.Second
)

var now = time.Now

// Handler обрабатывает кадры, извлечённые из потока соединения.
type Handler interface {
	Run(ctx context.Context, f domain.Frame) (domain.Result, error)
}

type Options struct {
	// MaxFrameSize - предельный размер буфера незавершённого кадра.
	MaxFrameSize int
	// Echo включает отправку принятых байт обратно трекеру.
	Echo         bool
	WriteTimeout time.Duration
	// WhiteList - допустимые адреса трекеров. Пустой список разрешает всех.
	WhiteList []string
}

type Server struct {
	addr    string
	ttl     time.Duration
	opts    Options
	handler Handler
	l       net.Listener

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

func New(srvAddress string, ttl time.Duration, handler Handler, opts Options) *Server {
	if opts.MaxFrameSize <= 0 {
		opts.MaxFrameSize = itriangle.DefaultMaxFrameSize
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:    srvAddress,
		ttl:     ttl,
		opts:    opts,
		handler: handler,
		ctx:     ctx,
		cancel:  cancel,
		conns:   make(map[net.Conn]struct{}),
	}
}

// Listen открывает сокет, не начиная приём соединений.
func (s *Server) Listen() error {
	var err error
	s.l, err = net.Listen("tcp", s.addr)
	return err
}

// Addr возвращает фактический адрес после Listen.
func (s *Server) Addr() net.Addr {
	if s.l == nil {
		return nil
	}
	return s.l.Addr()
}

func (s *Server) Run() {
	if err := s.Listen(); err != nil {
		log.Fatalf("Не удалось открыть соединение: %v", err)
	}
	s.Serve()
}

// Serve принимает соединения до вызова Stop.
func (s *Server) Serve() {
	log.Infof("Запущен сервер %s", s.l.Addr())
	for {
		conn, err := s.l.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
			}
			log.WithField("err", err).Errorf("Ошибка соединения")
			continue
		}

		if !s.track(conn) {
			_ = conn.Close()
			return
		}
		go s.handleConn(conn)
	}
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx.Err() != nil {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	s.wg.Done()
}

// Stop закрывает сокет и все открытые соединения и дожидается их обработчиков.
func (s *Server) Stop() error {
	s.mu.Lock()
	s.cancel()
	var err error
	if s.l != nil {
		err = s.l.Close()
	}
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return err
}

func (s *Server) allowed(conn net.Conn) bool {
	if len(s.opts.WhiteList) == 0 {
		return true
	}
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return false
	}
	return isInWhiteList(host, s.opts.WhiteList)
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.untrack(conn)
	defer conn.Close()

	ip := conn.RemoteAddr().String()
	if !s.allowed(conn) {
		log.WithField("ip", ip).Warn("Адрес не входит в белый список, соединение закрыто")
		return
	}

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetKeepAlive(true)
		_ = tcpConn.SetKeepAlivePeriod(keepAlivePeriod)
	}

	observability.Connections.Inc()
	observability.ActiveConnections.Inc()
	defer observability.ActiveConnections.Dec()

	log.WithField("ip", ip).Info("Установлено соединение")
	log.Debug("TTL: ", s.ttl)

	extractor := itriangle.NewExtractor(s.opts.MaxFrameSize)
	buf := make([]byte, readBufferSize)

	for {
		if s.ttl > 0 {
			_ = conn.SetReadDeadline(now().Add(s.ttl))
		} else {
			_ = conn.SetReadDeadline(time.Time{})
		}

		n, err := conn.Read(buf)
		if n > 0 {
			if !s.process(conn, extractor, buf[:n]) {
				return
			}
		}

		if err != nil {
			switch ne, ok := err.(net.Error); {
			case ok && ne.Timeout():
				log.WithField("ip", ip).Warn("Таймаут чтения")
			case err == io.EOF:
				log.WithField("ip", ip).Info("Клиент закрыл соединение")
			case s.ctx.Err() != nil || errors.Is(err, net.ErrClosed):
				log.WithField("ip", ip).Debug("Соединение закрыто при остановке сервера")
			default:
				log.WithField("err", err).Error("Ошибка при получении")
			}
			return
		}
	}
}

// process возвращает false, если соединение нужно закрыть.
func (s *Server) process(conn net.Conn, extractor *itriangle.Extractor, data []byte) bool {
	ip := conn.RemoteAddr().String()

	if s.opts.Echo {
		// Пока запись не завершена, чтение из сокета не продолжается.
		_ = conn.SetWriteDeadline(now().Add(s.opts.WriteTimeout))
		if _, err := conn.Write(data); err != nil {
			log.WithFields(log.Fields{"ip": ip, "err": err}).Warn("Не удалось отправить эхо")
			return false
		}
	}

	bodies, feedErr := extractor.Feed(data)
	if discarded := extractor.Discarded(); discarded > 0 {
		observability.GarbageBytes.Add(float64(discarded))
		log.WithFields(log.Fields{"ip": ip, "bytes": discarded}).Debug("Отброшены байты вне кадра")
	}

	received := now()
	for _, body := range bodies {
		observability.Frames.Inc()
		log.WithFields(log.Fields{"ip": ip, "frame": body}).Debug("Принят кадр")

		res, err := s.handler.Run(s.ctx, domain.Frame{RemoteAddr: ip, Body: body, ReceivedAt: received})
		if err != nil {
			log.WithFields(log.Fields{"ip": ip, "stage": res.Stage.String(), "err": err}).Warn("Телематические данные не были сохранены")
		}
	}

	if feedErr != nil {
		observability.OversizedFrames.Inc()
		log.WithFields(log.Fields{"ip": ip, "err": feedErr}).Warn("Превышен размер кадра, соединение закрыто")
		return false
	}
	return true
}
