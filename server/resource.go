package server

import (
	"bytes"
	"net/http"
	"os"
	"runtime/pprof"
	"time"

	"github.com/google/pprof/profile"
	"github.com/shirou/gopsutil/process"
)

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (s *Server) listResources(w http.ResponseWriter, r *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		s.fail(w, r, err)
		return
	}

	memory, err := proc.MemoryInfo()
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.respond(w, r, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memory.RSS,
	})
}

func (s *Server) collectProfile(w http.ResponseWriter, r *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	select {
	case <-time.After(s.profileDuration):
	case <-r.Context().Done():
	}

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.respond(w, r, prof)
}
