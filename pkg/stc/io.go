package stc

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"
)

// hemiFile holds one hemisphere's worth of a source estimate as stored on
// disk.
type hemiFile struct {
	tmin, tstep float64 // seconds
	vertices    []int
	data        [][]float64 // [vertex][time]
}

// Read loads a source estimate from stem+"-lh.stc" and stem+"-rh.stc". At
// least one hemisphere file must exist; when both do, their time axes must
// agree.
func Read(stem string) (*SourceEstimate, error) {
	var lh, rh *hemiFile
	var err error

	lhPath := stem + "-lh.stc"
	if _, statErr := os.Stat(lhPath); statErr == nil {
		lh, err = readSTCFile(lhPath)
		if err != nil {
			return nil, err
		}
	}
	rhPath := stem + "-rh.stc"
	if _, statErr := os.Stat(rhPath); statErr == nil {
		rh, err = readSTCFile(rhPath)
		if err != nil {
			return nil, err
		}
	}
	if lh == nil && rh == nil {
		return nil, fmt.Errorf("stc: no stc files found for stem %s", stem)
	}
	if lh != nil && rh != nil {
		if lh.tmin != rh.tmin || lh.tstep != rh.tstep || len(lh.data[0]) != len(rh.data[0]) {
			return nil, fmt.Errorf("stc: hemisphere files of %s have mismatched time axes", stem)
		}
	}

	ref := lh
	if ref == nil {
		ref = rh
	}
	nt := len(ref.data[0])

	s := &SourceEstimate{TMin: ref.tmin, TStep: ref.tstep}
	var rows [][]float64
	if lh != nil {
		s.LHVertices = lh.vertices
		rows = append(rows, lh.data...)
	}
	if rh != nil {
		s.RHVertices = rh.vertices
		rows = append(rows, rh.data...)
	}
	data := mat.NewDense(len(rows), nt, nil)
	for i, row := range rows {
		data.SetRow(i, row)
	}
	s.Data = data
	return s, nil
}

// Save writes the estimate to stem+"-lh.stc" and stem+"-rh.stc", skipping
// hemispheres with no vertices.
func (s *SourceEstimate) Save(stem string) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if len(s.LHVertices) > 0 {
		if err := s.saveHemi(stem+"-lh.stc", s.LHVertices, 0); err != nil {
			return err
		}
	}
	if len(s.RHVertices) > 0 {
		if err := s.saveHemi(stem+"-rh.stc", s.RHVertices, len(s.LHVertices)); err != nil {
			return err
		}
	}
	return nil
}

// readSTCFile parses one hemisphere's binary stc file. The format is
// big-endian: tmin and tstep in milliseconds as float32, the vertex count,
// the vertex indices, the time point count, then one frame of per-vertex
// float32 samples per time point.
func readSTCFile(path string) (*hemiFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("stc: opening %s: %w", path, err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	var tminMS, tstepMS float32
	if err := binary.Read(r, binary.BigEndian, &tminMS); err != nil {
		return nil, fmt.Errorf("stc: %s: reading tmin: %w", path, err)
	}
	if err := binary.Read(r, binary.BigEndian, &tstepMS); err != nil {
		return nil, fmt.Errorf("stc: %s: reading tstep: %w", path, err)
	}
	var nVert uint32
	if err := binary.Read(r, binary.BigEndian, &nVert); err != nil {
		return nil, fmt.Errorf("stc: %s: reading vertex count: %w", path, err)
	}
	verts := make([]uint32, nVert)
	if err := binary.Read(r, binary.BigEndian, verts); err != nil {
		return nil, fmt.Errorf("stc: %s: reading vertices: %w", path, err)
	}
	var nTimes uint32
	if err := binary.Read(r, binary.BigEndian, &nTimes); err != nil {
		return nil, fmt.Errorf("stc: %s: reading time count: %w", path, err)
	}
	if nTimes == 0 || nVert == 0 {
		return nil, fmt.Errorf("stc: %s: empty estimate (%d vertices, %d times)", path, nVert, nTimes)
	}

	h := &hemiFile{
		tmin:     float64(tminMS) / 1000,
		tstep:    float64(tstepMS) / 1000,
		vertices: make([]int, nVert),
		data:     make([][]float64, nVert),
	}
	for i, v := range verts {
		h.vertices[i] = int(v)
		h.data[i] = make([]float64, nTimes)
	}
	frame := make([]float32, nVert)
	for t := uint32(0); t < nTimes; t++ {
		if err := binary.Read(r, binary.BigEndian, frame); err != nil {
			return nil, fmt.Errorf("stc: %s: reading frame %d: %w", path, t, err)
		}
		for i := range frame {
			h.data[i][t] = float64(frame[i])
		}
	}
	return h, nil
}

func (s *SourceEstimate) saveHemi(path string, vertices []int, rowOffset int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("stc: creating %s: %w", path, err)
	}
	w := bufio.NewWriter(f)

	nt := s.NumTimes()
	if err := binary.Write(w, binary.BigEndian, float32(s.TMin*1000)); err != nil {
		f.Close()
		return err
	}
	if err := binary.Write(w, binary.BigEndian, float32(s.TStep*1000)); err != nil {
		f.Close()
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(vertices))); err != nil {
		f.Close()
		return err
	}
	verts := make([]uint32, len(vertices))
	for i, v := range vertices {
		verts[i] = uint32(v)
	}
	if err := binary.Write(w, binary.BigEndian, verts); err != nil {
		f.Close()
		return fmt.Errorf("stc: %s: writing vertices: %w", path, err)
	}
	if err := binary.Write(w, binary.BigEndian, uint32(nt)); err != nil {
		f.Close()
		return err
	}
	frame := make([]float32, len(vertices))
	for t := 0; t < nt; t++ {
		for i := range vertices {
			frame[i] = float32(s.Data.At(rowOffset+i, t))
		}
		if err := binary.Write(w, binary.BigEndian, frame); err != nil {
			f.Close()
			return fmt.Errorf("stc: %s: writing frame %d: %w", path, t, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("stc: writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("stc: closing %s: %w", path, err)
	}
	return nil
}
