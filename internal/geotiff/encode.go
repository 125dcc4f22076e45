// Package geotiff writes minimal single-band float32 GeoTIFFs:
// little-endian, one strip, uncompressed, georeferenced to WGS84 via
// pixel-scale and tiepoint tags. Invalid pixels carry NaN and a
// GDAL-style nodata tag.
package geotiff

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"sort"

	"github.com/rotisserie/eris"
)

// TIFF data types.
const (
	typeASCII  = 2
	typeShort  = 3
	typeLong   = 4
	typeFloat  = 11
	typeDouble = 12
)

// TIFF and GeoTIFF tags.
const (
	tagImageWidth       = 256
	tagImageLength      = 257
	tagBitsPerSample    = 258
	tagCompression      = 259
	tagPhotometric      = 262
	tagStripOffsets     = 273
	tagSamplesPerPixel  = 277
	tagRowsPerStrip     = 278
	tagStripByteCounts  = 279
	tagSampleFormat     = 339
	tagModelPixelScale  = 33550
	tagModelTiepoint    = 33922
	tagGeoKeyDirectory  = 34735
	tagGDALNoData       = 42113
	sampleFormatFloat   = 3
	compressionNone     = 1
	photometricMinBlack = 1
)

var enc = binary.LittleEndian

// Raster is a georeferenced single-band grid. Vals are row-major with
// row 0 at the top (north); PixelSize is in CRS units per pixel.
// Invalid pixels are written as NaN.
type Raster struct {
	Band      string
	W, H      int
	Vals      []float64
	Valid     []bool
	OriginX   float64 // west edge
	OriginY   float64 // north edge
	PixelSize float64
}

type ifdEntry struct {
	tag      uint16
	datatype uint16
	count    uint32
	data     []byte
}

// Encode writes the raster as a GeoTIFF.
func Encode(w io.Writer, r Raster) error {
	if r.W <= 0 || r.H <= 0 {
		return eris.New("geotiff: empty raster")
	}
	if len(r.Vals) != r.W*r.H {
		return eris.Errorf("geotiff: %d values for %dx%d raster", len(r.Vals), r.W, r.H)
	}

	// Sample data: float32, one strip.
	pixels := make([]byte, 0, 4*r.W*r.H)
	var buf [4]byte
	for i, v := range r.Vals {
		if r.Valid != nil && !r.Valid[i] {
			v = math.NaN()
		}
		enc.PutUint32(buf[:], math.Float32bits(float32(v)))
		pixels = append(pixels, buf[:]...)
	}

	var entries []ifdEntry
	add := func(tag, datatype uint16, count uint32, data []byte) {
		entries = append(entries, ifdEntry{tag, datatype, count, data})
	}

	add(tagImageWidth, typeLong, 1, enc32(uint32(r.W)))
	add(tagImageLength, typeLong, 1, enc32(uint32(r.H)))
	add(tagBitsPerSample, typeShort, 1, enc16(32))
	add(tagCompression, typeShort, 1, enc16(compressionNone))
	add(tagPhotometric, typeShort, 1, enc16(photometricMinBlack))
	add(tagSamplesPerPixel, typeShort, 1, enc16(1))
	add(tagRowsPerStrip, typeLong, 1, enc32(uint32(r.H)))
	add(tagSampleFormat, typeShort, 1, enc16(sampleFormatFloat))
	add(tagStripOffsets, typeLong, 1, make([]byte, 4))
	add(tagStripByteCounts, typeLong, 1, enc32(uint32(len(pixels))))

	// Georeferencing: pixel scale + upper-left tiepoint, WGS84 geographic.
	add(tagModelPixelScale, typeDouble, 3, encDoubles([]float64{r.PixelSize, r.PixelSize, 0}))
	add(tagModelTiepoint, typeDouble, 6, encDoubles([]float64{0, 0, 0, r.OriginX, r.OriginY, 0}))
	add(tagGeoKeyDirectory, typeShort, 16, enc16s([]uint16{
		1, 1, 0, 3, // version, revision, minor, key count
		1024, 0, 1, 2, // GTModelType: geographic
		1025, 0, 1, 1, // GTRasterType: pixel-is-area
		2048, 0, 1, 4326, // GeographicType: WGS84
	}))
	add(tagGDALNoData, typeASCII, 4, []byte("nan\x00"))

	sort.Slice(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })

	// Layout: header (8) | IFD | overflow values | pixels.
	ifdSize := 2 + 12*len(entries) + 4
	valueOffset := 8 + ifdSize

	var overflow bytes.Buffer
	for i := range entries {
		e := &entries[i]
		if len(e.data) > 4 {
			off := uint32(valueOffset + overflow.Len())
			overflow.Write(e.data)
			e.data = enc32(off)
		}
	}

	pixelsOffset := uint32(valueOffset + overflow.Len())
	for i := range entries {
		if entries[i].tag == tagStripOffsets {
			entries[i].data = enc32(pixelsOffset)
		}
	}

	out := bytes.NewBuffer(make([]byte, 0, int(pixelsOffset)+len(pixels)))
	out.Write([]byte{'I', 'I', 0x2A, 0x00, 0x08, 0x00, 0x00, 0x00})

	if err := binary.Write(out, enc, uint16(len(entries))); err != nil {
		return eris.Wrap(err, "geotiff: write entry count")
	}
	for _, e := range entries {
		binary.Write(out, enc, e.tag)      //nolint:errcheck // bytes.Buffer
		binary.Write(out, enc, e.datatype) //nolint:errcheck
		binary.Write(out, enc, e.count)    //nolint:errcheck
		var val [4]byte
		copy(val[:], e.data)
		out.Write(val[:])
	}
	binary.Write(out, enc, uint32(0)) //nolint:errcheck
	overflow.WriteTo(out)             //nolint:errcheck
	out.Write(pixels)

	if _, err := w.Write(out.Bytes()); err != nil {
		return eris.Wrap(err, "geotiff: write")
	}
	return nil
}

func enc16(v uint16) []byte {
	b := make([]byte, 2)
	enc.PutUint16(b, v)
	return b
}

func enc32(v uint32) []byte {
	b := make([]byte, 4)
	enc.PutUint32(b, v)
	return b
}

func enc16s(vs []uint16) []byte {
	b := make([]byte, 2*len(vs))
	for i, v := range vs {
		enc.PutUint16(b[i*2:], v)
	}
	return b
}

func encDoubles(vs []float64) []byte {
	b := make([]byte, 8*len(vs))
	for i, v := range vs {
		enc.PutUint64(b[i*8:], math.Float64bits(v))
	}
	return b
}
