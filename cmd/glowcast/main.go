// glowcast is a test sender: it streams a moving color pattern to a
// glowstream receiver, optionally DEFLATE-compressed, and reports the
// telemetry coming back in the status replies.
package main

import (
	"flag"
	"io"
	"log"
	"math"
	"net"
	"time"

	"github.com/seiftnesse/glowstream/protocol/wire"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:49152", "Receiver address")
	rows := flag.Int("rows", 32, "Matrix rows")
	cols := flag.Int("cols", 64, "Matrix columns")
	chain := flag.Int("chain", 8, "Chained panel count")
	fps := flag.Int("fps", 30, "Frames per second to send")
	channel := flag.Uint("channel", 1, "Wire channel id")
	ahead := flag.Duration("ahead", 500*time.Millisecond, "How far in the future to timestamp frames")
	compress := flag.Bool("compress", false, "Send DEFLATE-compressed packets")
	flag.Parse()

	pixelCount := *rows * *cols * *chain

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		log.Fatalf("dial %s: %v", *addr, err)
	}
	defer conn.Close()

	log.Printf("streaming %d-pixel frames to %s at %d fps (compress=%v)", pixelCount, *addr, *fps, *compress)

	interval := time.Second / time.Duration(*fps)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	replyBuf := make([]byte, wire.StatusReplySize)
	pixels := make([]byte, pixelCount*wire.BytesPerPixel)

	for frameNum := 0; ; frameNum++ {
		<-ticker.C

		fillPattern(pixels, frameNum)

		due := time.Now().Add(*ahead)
		pkt, err := wire.EncodePacket(uint16(*channel), pixels, uint64(due.Unix()), uint64(due.Nanosecond()/1000))
		if err != nil {
			log.Fatalf("encode packet: %v", err)
		}

		if *compress {
			pkt, err = wire.EncodeCompressedPacket(pkt)
			if err != nil {
				log.Fatalf("compress packet: %v", err)
			}
		}

		if _, err := conn.Write(pkt); err != nil {
			log.Fatalf("write frame %d: %v", frameNum, err)
		}

		conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		if _, err := io.ReadFull(conn, replyBuf); err != nil {
			log.Fatalf("read status reply: %v", err)
		}
		reply, err := wire.DecodeStatusReply(replyBuf)
		if err != nil {
			log.Fatalf("decode status reply: %v", err)
		}

		if frameNum%*fps == 0 {
			log.Printf("frame %d: receiver queue %d/%d, oldest %+.3fs, newest %+.3fs, fps %d",
				frameNum, reply.BufferPos, reply.BufferSize, reply.OldestAge, reply.NewestAge, reply.FPS)
		}
	}
}

// fillPattern paints a scrolling color wave so motion is visible on the
// receiving display.
func fillPattern(pixels []byte, frameNum int) {
	n := len(pixels) / wire.BytesPerPixel
	phase := float64(frameNum) * 0.1
	for i := 0; i < n; i++ {
		t := float64(i)/float64(n)*2*math.Pi + phase
		pixels[i*3+0] = byte(127.5 + 127.5*math.Sin(t))
		pixels[i*3+1] = byte(127.5 + 127.5*math.Sin(t+2*math.Pi/3))
		pixels[i*3+2] = byte(127.5 + 127.5*math.Sin(t+4*math.Pi/3))
	}
}
