package pointcloud

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/edaniels/golog"
	"github.com/edaniels/lidario"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// NewFromFile returns a point cloud read in from the given file, dispatching
// on the file extension.
func NewFromFile(fn string, logger golog.Logger) (*PointCloud, error) {
	switch strings.ToLower(filepath.Ext(fn)) {
	case ".las", ".laz":
		return newFromLASFile(fn, logger)
	case ".pcd":
		//nolint:gosec
		f, err := os.Open(fn)
		if err != nil {
			return nil, err
		}
		defer utils.UncheckedErrorFunc(f.Close)
		return ReadPCD(f)
	case ".ply":
		//nolint:gosec
		f, err := os.Open(fn)
		if err != nil {
			return nil, err
		}
		defer utils.UncheckedErrorFunc(f.Close)
		return ReadPLY(f)
	default:
		return nil, errors.Errorf("do not know how to read file %q", fn)
	}
}

// newFromLASFile returns a point cloud from reading a LAS file. LAS stores
// color as 16-bit channels; they are rescaled to [0,1]. Points without color
// data produce a cloud with no color channel at all.
func newFromLASFile(fn string, logger golog.Logger) (*PointCloud, error) {
	lf, err := lidario.NewLasFile(fn, "r")
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(lf.Close)

	pc := NewWithPrealloc(lf.Header.NumberPoints)
	for i := 0; i < lf.Header.NumberPoints; i++ {
		p, err := lf.LasPoint(i)
		if err != nil {
			return nil, err
		}
		data := p.PointData()
		v := r3.Vector{X: data.X, Y: data.Y, Z: data.Z}

		if lf.Header.PointFormatID == 2 && p.RgbData() != nil {
			rgb := p.RgbData()
			pc.AddColored(v, Color{
				R: float64(rgb.Red) / 65535.0,
				G: float64(rgb.Green) / 65535.0,
				B: float64(rgb.Blue) / 65535.0,
			})
		} else {
			pc.Add(v)
		}
	}
	logger.Debugf("read %d points from %s", pc.Size(), fn)
	return pc, nil
}

// PCDType is the format of a pcd file.
type PCDType int

const (
	// PCDAscii ascii format for pcd.
	PCDAscii PCDType = 0
	// PCDBinary binary format for pcd.
	PCDBinary PCDType = 1
)

type pcdFieldType int

const (
	pcdPointOnly  pcdFieldType = 3
	pcdPointColor pcdFieldType = 4
)

type pcdHeader struct {
	fields pcdFieldType
	size   []uint64
	width  uint64
	height uint64
	points uint64
	data   PCDType
}

const pcdCommentChar = "#"

var pcdHeaderFields = []string{"VERSION", "FIELDS", "SIZE", "TYPE", "COUNT", "WIDTH", "HEIGHT", "VIEWPOINT", "POINTS", "DATA"}

func parsePCDHeaderLine(line string, index int, header *pcdHeader) error {
	var err error
	name := pcdHeaderFields[index]
	field, value, _ := strings.Cut(line, " ")
	tokens := strings.Split(value, " ")
	if field != name {
		return errors.Errorf("line is supposed to start with %s but is %s", name, line)
	}

	switch name {
	case "VERSION":
		if value != ".7" && value != "0.7" {
			return errors.Errorf("unsupported pcd version %s", value)
		}
	case "FIELDS":
		switch value {
		case "x y z":
			header.fields = pcdPointOnly
		case "x y z rgb":
			header.fields = pcdPointColor
		default:
			return errors.Errorf("unsupported pcd fields %s", value)
		}
	case "SIZE":
		if len(tokens) != int(header.fields) {
			return errors.New("unexpected number of fields in SIZE line")
		}
		header.size = make([]uint64, len(tokens))
		for i, token := range tokens {
			header.size[i], err = strconv.ParseUint(token, 10, 64)
			if err != nil {
				return errors.Errorf("invalid SIZE field %s", token)
			}
			if header.size[i] != 4 {
				return errors.Errorf("unsupported SIZE %d, only 4-byte fields are supported", header.size[i])
			}
		}
	case "TYPE", "COUNT":
		if len(tokens) != int(header.fields) {
			return errors.Errorf("unexpected number of fields in %s line", name)
		}
	case "WIDTH":
		header.width, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return errors.Errorf("invalid WIDTH field %s: %s", value, err)
		}
	case "HEIGHT":
		header.height, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return errors.Errorf("invalid HEIGHT field %s: %s", value, err)
		}
	case "VIEWPOINT":
		if len(tokens) != 7 {
			return errors.Errorf("unexpected number of fields in VIEWPOINT line. Expected 7, got %d", len(tokens))
		}
	case "POINTS":
		var points uint64
		points, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return errors.Errorf("invalid POINTS field %s: %s", value, err)
		}
		if points != header.width*header.height {
			return errors.Errorf("POINTS field %d does not match WIDTH*HEIGHT %d", points, header.width*header.height)
		}
		header.points = points
	case "DATA":
		switch value {
		case "ascii":
			header.data = PCDAscii
		case "binary":
			header.data = PCDBinary
		default:
			return errors.Errorf("unsupported pcd data type %s", value)
		}
	}

	return nil
}

// ReadPCD reads a PCD file (ascii or binary, VERSION .7) into a point cloud.
func ReadPCD(inRaw io.Reader) (*PointCloud, error) {
	header := pcdHeader{}
	in := bufio.NewReader(inRaw)
	var line string
	var err error
	headerLineCount := 0
	for headerLineCount < len(pcdHeaderFields) {
		line, err = in.ReadString('\n')
		if err != nil {
			return nil, errors.Errorf("error reading header line %d: %s", headerLineCount, err)
		}
		line, _, _ = strings.Cut(line, pcdCommentChar)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := parsePCDHeaderLine(line, headerLineCount, &header); err != nil {
			return nil, err
		}
		headerLineCount++
	}
	switch header.data {
	case PCDAscii:
		return readPCDAscii(in, header)
	case PCDBinary:
		return readPCDBinary(in, header)
	default:
		return nil, errors.Errorf("unsupported pcd data type %v", header.data)
	}
}

// preallocPoints bounds preallocation so a corrupt POINTS count cannot
// exhaust memory before the point reads fail.
func preallocPoints(points uint64) int {
	const maxPrealloc = 1 << 22
	if points > maxPrealloc {
		return maxPrealloc
	}
	return int(points)
}

func readPCDAscii(in *bufio.Reader, header pcdHeader) (*PointCloud, error) {
	pc := NewWithPrealloc(preallocPoints(header.points))
	for i := 0; i < int(header.points); i++ {
		line, err := in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		line = strings.TrimSpace(line)
		tokens := strings.Split(line, " ")
		if len(tokens) != int(header.fields) {
			return nil, errors.Errorf("unexpected number of fields in point %d", i)
		}
		point := make([]float64, len(tokens))
		for j, token := range tokens {
			point[j], err = strconv.ParseFloat(token, 64)
			if err != nil {
				return nil, errors.Errorf("invalid point %d field %s: %s", i, token, err)
			}
		}
		addSliceToCloud(pc, point, header)
	}
	return pc, nil
}

func readPCDBinary(in *bufio.Reader, header pcdHeader) (*PointCloud, error) {
	pc := NewWithPrealloc(preallocPoints(header.points))
	for i := 0; i < int(header.points); i++ {
		pointBuf := make([]float64, int(header.fields))
		for j := 0; j < int(header.fields); j++ {
			buf := make([]byte, header.size[j])
			if _, err := io.ReadFull(in, buf); err != nil {
				return nil, err
			}
			bits := binary.LittleEndian.Uint32(buf)
			if header.fields == pcdPointColor && j == 3 {
				// rgb is a packed integer, not a float
				pointBuf[j] = float64(bits)
			} else {
				pointBuf[j] = float64(math.Float32frombits(bits))
			}
		}
		addSliceToCloud(pc, pointBuf, header)
	}
	return pc, nil
}

func addSliceToCloud(pc *PointCloud, slice []float64, header pcdHeader) {
	pos := r3.Vector{X: slice[0], Y: slice[1], Z: slice[2]}
	if header.fields == pcdPointColor {
		c := int(slice[3])
		pc.AddColored(pos, Color{
			R: float64(0xFF&(c>>16)) / 255.0,
			G: float64(0xFF&(c>>8)) / 255.0,
			B: float64(0xFF&c) / 255.0,
		})
		return
	}
	pc.Add(pos)
}

func _colorToPCDInt(c Color) int {
	r := int(math.Round(c.R * 255.0))
	g := int(math.Round(c.G * 255.0))
	b := int(math.Round(c.B * 255.0))
	return (r << 16) | (g << 8) | b
}

// ToPCD writes the point cloud out in PCD format.
func ToPCD(cloud *PointCloud, out io.Writer, outputType PCDType) error {
	var err error

	_, err = fmt.Fprintf(out, "VERSION .7\n")
	if err != nil {
		return err
	}
	if cloud.HasColor() {
		_, err = fmt.Fprintf(out, "FIELDS x y z rgb\n"+
			"SIZE 4 4 4 4\n"+
			"TYPE F F F I\n"+
			"COUNT 1 1 1 1\n")
	} else {
		_, err = fmt.Fprintf(out, "FIELDS x y z\n"+
			"SIZE 4 4 4\n"+
			"TYPE F F F\n"+
			"COUNT 1 1 1\n")
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "WIDTH %d\n"+
		"HEIGHT %d\n"+
		"VIEWPOINT 0 0 0 1 0 0 0\n"+
		"POINTS %d\n",
		cloud.Size(), 1, cloud.Size())
	if err != nil {
		return err
	}

	switch outputType {
	case PCDBinary:
		if _, err := fmt.Fprintf(out, "DATA binary\n"); err != nil {
			return err
		}
	case PCDAscii:
		if _, err := fmt.Fprintf(out, "DATA ascii\n"); err != nil {
			return err
		}
	default:
		return errors.Errorf("unsupported pcd output type %v", outputType)
	}
	return writePCDData(cloud, out, outputType)
}

func writePCDData(cloud *PointCloud, out io.Writer, pcdtype PCDType) error {
	var err error
	cloud.Iterate(func(i int, pos r3.Vector) bool {
		if c, ok := cloud.Color(i); ok {
			ci := _colorToPCDInt(c)
			switch pcdtype {
			case PCDBinary:
				buf := make([]byte, 16)
				binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(pos.X)))
				binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(pos.Y)))
				binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(float32(pos.Z)))
				binary.LittleEndian.PutUint32(buf[12:], uint32(ci))
				_, err = out.Write(buf)
			case PCDAscii:
				_, err = fmt.Fprintf(out, "%f %f %f %d\n", pos.X, pos.Y, pos.Z, ci)
			}
		} else {
			switch pcdtype {
			case PCDBinary:
				buf := make([]byte, 12)
				binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(pos.X)))
				binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(pos.Y)))
				binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(float32(pos.Z)))
				_, err = out.Write(buf)
			case PCDAscii:
				_, err = fmt.Fprintf(out, "%f %f %f\n", pos.X, pos.Y, pos.Z)
			}
		}
		return err == nil
	})
	return err
}
