package pointcloud

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

type plyProperty struct {
	name string
	typ  string
}

type plyHeader struct {
	vertexCount int
	properties  []plyProperty
}

// ReadPLY reads an ascii PLY file into a point cloud. Only the vertex
// element is consumed; faces and other elements are ignored. Color
// properties stored as ushort are rescaled from 16-bit, uchar from 8-bit.
func ReadPLY(inRaw io.Reader) (*PointCloud, error) {
	in := bufio.NewReader(inRaw)
	header, err := parsePLYHeader(in)
	if err != nil {
		return nil, err
	}

	idx := map[string]int{}
	for i, prop := range header.properties {
		idx[prop.name] = i
	}
	for _, name := range []string{"x", "y", "z"} {
		if _, ok := idx[name]; !ok {
			return nil, errors.Errorf("ply vertex element missing %q property", name)
		}
	}
	_, hasRed := idx["red"]
	_, hasGreen := idx["green"]
	_, hasBlue := idx["blue"]
	hasColor := hasRed && hasGreen && hasBlue

	colorScale := 255.0
	if hasColor && header.properties[idx["red"]].typ == "ushort" {
		colorScale = 65535.0
	}

	pc := NewWithPrealloc(header.vertexCount)
	for i := 0; i < header.vertexCount; i++ {
		line, err := in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		tokens := strings.Fields(line)
		if len(tokens) < len(header.properties) {
			return nil, errors.Errorf("ply vertex %d has %d values, want %d", i, len(tokens), len(header.properties))
		}
		vals := make([]float64, len(header.properties))
		for j := range header.properties {
			vals[j], err = strconv.ParseFloat(tokens[j], 64)
			if err != nil {
				return nil, errors.Errorf("invalid ply vertex %d value %q: %s", i, tokens[j], err)
			}
		}
		pos := r3.Vector{X: vals[idx["x"]], Y: vals[idx["y"]], Z: vals[idx["z"]]}
		if hasColor {
			pc.AddColored(pos, Color{
				R: vals[idx["red"]] / colorScale,
				G: vals[idx["green"]] / colorScale,
				B: vals[idx["blue"]] / colorScale,
			})
		} else {
			pc.Add(pos)
		}
	}
	return pc, nil
}

func parsePLYHeader(in *bufio.Reader) (*plyHeader, error) {
	magic, err := in.ReadString('\n')
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(magic) != "ply" {
		return nil, errors.New("not a ply file")
	}

	header := &plyHeader{vertexCount: -1}
	inVertexElement := false
	for {
		line, err := in.ReadString('\n')
		if err != nil {
			return nil, errors.Errorf("unexpected end of ply header: %s", err)
		}
		tokens := strings.Fields(line)
		if len(tokens) == 0 {
			continue
		}
		switch tokens[0] {
		case "comment":
		case "format":
			if len(tokens) < 2 || tokens[1] != "ascii" {
				return nil, errors.Errorf("unsupported ply format %q", strings.TrimSpace(line))
			}
		case "element":
			if len(tokens) != 3 {
				return nil, errors.Errorf("invalid ply element line %q", strings.TrimSpace(line))
			}
			if tokens[1] == "vertex" {
				count, err := strconv.Atoi(tokens[2])
				if err != nil {
					return nil, errors.Errorf("invalid ply vertex count %q", tokens[2])
				}
				header.vertexCount = count
				inVertexElement = true
			} else {
				inVertexElement = false
			}
		case "property":
			if inVertexElement {
				if len(tokens) != 3 {
					return nil, errors.Errorf("invalid ply property line %q", strings.TrimSpace(line))
				}
				header.properties = append(header.properties, plyProperty{name: tokens[2], typ: tokens[1]})
			}
		case "end_header":
			if header.vertexCount < 0 {
				return nil, errors.New("ply header has no vertex element")
			}
			return header, nil
		default:
			return nil, errors.Errorf("unexpected ply header line %q", strings.TrimSpace(line))
		}
	}
}
