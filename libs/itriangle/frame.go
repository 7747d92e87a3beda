package itriangle

import (
	"bytes"
	"errors"
)

const (
	StartMarker = "$$CLIENT_1NS"
	EndMarker   = "*"

	// после '*' идут два символа контрольной суммы
	suffixLen = 2

	DefaultMaxFrameSize = 16 * 1024
)

var ErrFrameTooLarge = errors.New("превышен максимальный размер кадра")

var (
	startMarker = []byte(StartMarker)
	endMarker   = []byte(EndMarker)
)

// Extractor накапливает байты одного соединения и выделяет из них кадры
// вида $$CLIENT_1NS...*XX. Не потокобезопасен: один экземпляр на соединение.
type Extractor struct {
	buf     []byte
	maxSize int

	discarded int
}

func NewExtractor(maxSize int) *Extractor {
	if maxSize <= 0 {
		maxSize = DefaultMaxFrameSize
	}
	return &Extractor{maxSize: maxSize}
}

// Feed добавляет данные в буфер и возвращает тела всех завершённых кадров.
// Тело кадра - это кадр без первых двух и последних трёх символов.
// При переполнении буфера возвращаются уже выделенные кадры, буфер
// сбрасывается и возвращается ErrFrameTooLarge.
func (e *Extractor) Feed(data []byte) ([]string, error) {
	e.buf = append(e.buf, data...)

	var bodies []string
	for {
		raw, ok := e.next()
		if !ok {
			break
		}
		bodies = append(bodies, Body(raw))
	}

	if len(e.buf) > e.maxSize {
		e.Reset()
		return bodies, ErrFrameTooLarge
	}

	return bodies, nil
}

func (e *Extractor) next() (string, bool) {
	start := bytes.Index(e.buf, startMarker)
	if start < 0 {
		// хвост может оказаться началом маркера, разрезанного между чтениями
		keep := len(startMarker) - 1
		if len(e.buf) > keep {
			e.drop(len(e.buf) - keep)
		}
		return "", false
	}
	if start > 0 {
		e.drop(start)
	}

	rest := e.buf[len(startMarker):]
	end := bytes.Index(rest, endMarker)

	// новый маркер начала до конца текущего кадра: кадр оборван, ресинхронизация
	if restart := bytes.Index(rest, startMarker); restart >= 0 && (end < 0 || restart < end) {
		e.drop(len(startMarker) + restart)
		return e.next()
	}

	if end < 0 {
		return "", false
	}

	frameLen := len(startMarker) + end + len(endMarker) + suffixLen
	if len(e.buf) < frameLen {
		return "", false
	}

	raw := string(e.buf[:frameLen])
	e.buf = e.buf[frameLen:]
	return raw, true
}

func (e *Extractor) drop(n int) {
	e.discarded += n
	e.buf = e.buf[n:]
}

// Discarded возвращает количество отброшенных байт мусора с момента
// последнего вызова и обнуляет счётчик.
func (e *Extractor) Discarded() int {
	n := e.discarded
	e.discarded = 0
	return n
}

// Buffered возвращает количество байт, ожидающих завершения кадра.
func (e *Extractor) Buffered() int {
	return len(e.buf)
}

func (e *Extractor) Reset() {
	e.buf = nil
}

// Body отрезает от кадра первые два символа ("$$") и хвост "*XX".
func Body(raw string) string {
	if len(raw) < 2+len(EndMarker)+suffixLen {
		return ""
	}
	return raw[2 : len(raw)-len(EndMarker)-suffixLen]
}
