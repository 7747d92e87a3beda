package main

import (
	"flag"
	"fmt"
	"io"
	"math"
	"net"
	"os"
	"time"

	"github.com/daniil11ru/fleetcontrol/libs/itriangle"
)

/*
Генератор кадров iTriangle TS101.

Отправляет на сервер приёма телематики синтетические кадры.

Usage:
  -serial string
    	Серийный номер трекера (обязательно)
  -type string
    	Тип кадра: tele или handshake (default "tele")
  -lat float
    	Широта
  -lon float
    	Долгота
  -speed float
    	Скорость, км/ч
  -odometer float
    	Пробег, км
  -heading float
    	Курс, градусы
  -ignition int
    	Зажигание: 0 или 1, -1 - не передавать (default 1)
  -count int
    	Количество кадров (default 1)
  -interval duration
    	Пауза между кадрами (default 1s)
  -chunk int
    	Размер фрагмента при записи в сокет, 0 - кадр целиком
  -echo
    	Ожидать эхо от сервера
  -server string
    	Адрес сервера в формате <ip>:<port> (default "localhost:5555")
  -timeout int
    	Время ожидания эха в секундах (default 5)

Example

```
./packet-gen -serial 1234567880 -lat 12.9 -lon 77.5 -ignition 0 -count 3 -server localhost:5555
```
*/

func main() {
	serial := ""
	pktType := ""
	lat := 0.0
	lon := 0.0
	speed := 0.0
	odometer := 0.0
	heading := 0.0
	ignition := 0
	count := 0
	interval := time.Duration(0)
	chunk := 0
	echo := false
	server := ""
	ackTimeout := 0

	flag.StringVar(&serial, "serial", "", "Серийный номер трекера (обязательно)")
	flag.StringVar(&pktType, "type", "tele", "Тип кадра: tele или handshake")
	flag.Float64Var(&lat, "lat", 0, "Широта")
	flag.Float64Var(&lon, "lon", 0, "Долгота")
	flag.Float64Var(&speed, "speed", 0, "Скорость, км/ч")
	flag.Float64Var(&odometer, "odometer", 0, "Пробег, км")
	flag.Float64Var(&heading, "heading", 0, "Курс, градусы")
	flag.IntVar(&ignition, "ignition", 1, "Зажигание: 0 или 1, -1 - не передавать")
	flag.IntVar(&count, "count", 1, "Количество кадров")
	flag.DurationVar(&interval, "interval", time.Second, "Пауза между кадрами")
	flag.IntVar(&chunk, "chunk", 0, "Размер фрагмента при записи в сокет, 0 - кадр целиком")
	flag.BoolVar(&echo, "echo", false, "Ожидать эхо от сервера")
	flag.StringVar(&server, "server", "localhost:5555", "Адрес сервера в формате <ip>:<port>")
	flag.IntVar(&ackTimeout, "timeout", 5, "Время ожидания эха в секундах")

	flag.Parse()

	if serial == "" {
		fmt.Println("Требуется серийный номер трекера, смотрите помощь (-h)")
		os.Exit(1)
	}

	msg := itriangle.Message{
		SerialNumber:   serial,
		Latitude:       lat,
		Longitude:      lon,
		SpeedKph:       speed,
		OdometerKm:     odometer,
		HeadingDegrees: heading,
		Overspeed:      0,
		Ignition:       float64(ignition),
	}
	if ignition < 0 {
		msg.Ignition = math.NaN()
	}

	conn, err := net.Dial("tcp", server)
	if err != nil {
		fmt.Println("Ошибка соединения: ", err)
		os.Exit(1)
	}
	defer conn.Close()

	for i := 0; i < count; i++ {
		var frame []byte
		switch pktType {
		case "tele":
			frame = itriangle.Encode(msg, time.Now())
		case "handshake":
			frame = itriangle.Handshake(serial, time.Now())
		default:
			fmt.Println("Неверный тип кадра, используйте tele или handshake в качестве значения параметра -type")
			os.Exit(1)
		}

		if err := send(conn, frame, chunk); err != nil {
			fmt.Println("Ошибка записи на сервер: ", err)
			os.Exit(1)
		}
		fmt.Printf("Отправлен кадр %d: %s\n", i+1, frame)

		if echo {
			got := make([]byte, len(frame))
			_ = conn.SetReadDeadline(time.Now().Add(time.Duration(ackTimeout) * time.Second))
			if _, err := io.ReadFull(conn, got); err != nil {
				fmt.Println("Ошибка чтения с сервера: ", err)
				os.Exit(1)
			}
			if string(got) != string(frame) {
				fmt.Printf("Эхо не совпадает с отправленным кадром: %s\n", got)
				os.Exit(1)
			}
		}

		if i < count-1 {
			time.Sleep(interval)
		}
	}
}

// send пишет кадр фрагментами заданного размера, чтобы проверить сборку кадров на сервере.
func send(w io.Writer, frame []byte, chunk int) error {
	if chunk <= 0 {
		chunk = len(frame)
	}
	for len(frame) > 0 {
		n := chunk
		if n > len(frame) {
			n = len(frame)
		}
		if _, err := w.Write(frame[:n]); err != nil {
			return err
		}
		frame = frame[n:]
	}
	return nil
}
