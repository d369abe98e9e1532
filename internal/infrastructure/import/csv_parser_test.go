package csvimport

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCSVParser(t *testing.T) {
	t.Run("Valid UTF-8 CSV", func(t *testing.T) {
		csv := "name,age,city\nAlice,30,New York\nBob,25,Boston"
		parser, err := NewCSVParser(strings.NewReader(csv))

		require.NoError(t, err)
		require.NotNil(t, parser)
	})

	t.Run("UTF-8 BOM is stripped", func(t *testing.T) {
		csv := "\xEF\xBB\xBFname,age\nAlice,30"
		parser, err := NewCSVParser(strings.NewReader(csv))

		require.NoError(t, err)
		require.NoError(t, parser.ParseHeader())

		headers := parser.Headers()
		assert.Equal(t, "name", headers[0])
	})

	t.Run("Empty file returns error", func(t *testing.T) {
		parser, err := NewCSVParser(strings.NewReader(""))

		assert.Nil(t, parser)
		assert.ErrorIs(t, err, ErrEmptyFile)
	})

	t.Run("Non-UTF-8 content returns error", func(t *testing.T) {
		parser, err := NewCSVParser(strings.NewReader("name\n\xff\xfe\xfd"))

		assert.Nil(t, parser)
		assert.ErrorIs(t, err, ErrInvalidEncoding)
	})

	t.Run("Custom delimiter", func(t *testing.T) {
		csv := "name;age;city\nAlice;30;NYC"
		parser, err := NewCSVParser(strings.NewReader(csv), WithDelimiter(';'))

		require.NoError(t, err)
		require.NoError(t, parser.ParseHeader())
		assert.Equal(t, []string{"name", "age", "city"}, parser.Headers())
	})
}

func TestParseHeader(t *testing.T) {
	t.Run("Valid header", func(t *testing.T) {
		csv := "code,name,price\n001,Widget,10.00"
		parser, _ := NewCSVParser(strings.NewReader(csv))

		require.NoError(t, parser.ParseHeader())
		assert.Equal(t, []string{"code", "name", "price"}, parser.Headers())
	})

	t.Run("Header with spaces trimmed", func(t *testing.T) {
		csv := "  code  ,  name  ,  price  \n001,Widget,10.00"
		parser, _ := NewCSVParser(strings.NewReader(csv))

		require.NoError(t, parser.ParseHeader())
		assert.Equal(t, []string{"code", "name", "price"}, parser.Headers())
	})

	t.Run("HasHeader check", func(t *testing.T) {
		csv := "code,name,price\n001,Widget,10.00"
		parser, _ := NewCSVParser(strings.NewReader(csv))
		require.NoError(t, parser.ParseHeader())

		assert.True(t, parser.HasHeader("code"))
		assert.False(t, parser.HasHeader("description"))
	})

	t.Run("ValidateHeaders finds missing", func(t *testing.T) {
		csv := "code,name\n001,Widget"
		parser, _ := NewCSVParser(strings.NewReader(csv))
		require.NoError(t, parser.ParseHeader())

		missing := parser.ValidateHeaders([]string{"code", "name", "price", "category"})
		assert.ElementsMatch(t, []string{"price", "category"}, missing)
	})
}

func TestReadRow(t *testing.T) {
	t.Run("Read single row", func(t *testing.T) {
		csv := "code,name,price\n001,Widget,10.00"
		parser, _ := NewCSVParser(strings.NewReader(csv))
		require.NoError(t, parser.ParseHeader())

		row, err := parser.ReadRow()

		require.NoError(t, err)
		assert.Equal(t, 1, row.Number)
		assert.Equal(t, 2, row.Line)
		assert.Equal(t, "001", row.Get("code"))
		assert.Equal(t, "Widget", row.Get("name"))
		assert.Equal(t, "10.00", row.Get("price"))
	})

	t.Run("Short row is padded with empty fields", func(t *testing.T) {
		csv := "code,name,price,category\n001,Widget"
		parser, _ := NewCSVParser(strings.NewReader(csv))
		require.NoError(t, parser.ParseHeader())

		row, err := parser.ReadRow()

		require.NoError(t, err)
		assert.Equal(t, "001", row.Get("code"))
		assert.Equal(t, "", row.Get("price"))
		assert.Equal(t, "", row.Get("category"))
	})

	t.Run("GetOrDefault", func(t *testing.T) {
		csv := "code,name,price\n001,Widget,"
		parser, _ := NewCSVParser(strings.NewReader(csv))
		require.NoError(t, parser.ParseHeader())

		row, _ := parser.ReadRow()

		assert.Equal(t, "001", row.GetOrDefault("code", "default"))
		assert.Equal(t, "N/A", row.GetOrDefault("price", "N/A"))
		assert.Equal(t, "none", row.GetOrDefault("missing", "none"))
	})

	t.Run("IsEmpty row", func(t *testing.T) {
		csv := "code,name\n,,\n001,Widget"
		parser, _ := NewCSVParser(strings.NewReader(csv))
		require.NoError(t, parser.ParseHeader())

		row1, _ := parser.ReadRow()
		assert.True(t, row1.IsEmpty())

		row2, _ := parser.ReadRow()
		assert.False(t, row2.IsEmpty())
	})

	t.Run("EOF after last row", func(t *testing.T) {
		csv := "code,name\n001,Widget"
		parser, _ := NewCSVParser(strings.NewReader(csv))
		require.NoError(t, parser.ParseHeader())

		_, err := parser.ReadRow()
		require.NoError(t, err)

		_, err = parser.ReadRow()
		assert.Equal(t, io.EOF, err)
	})
}

func TestReadAllRows(t *testing.T) {
	t.Run("Read all rows with dense numbering", func(t *testing.T) {
		csv := "code,name\n001,Widget\n002,Gadget\n003,Gizmo"
		parser, _ := NewCSVParser(strings.NewReader(csv))
		require.NoError(t, parser.ParseHeader())

		rows, err := parser.ReadAllRows()

		require.NoError(t, err)
		require.Len(t, rows, 3)
		for i, row := range rows {
			assert.Equal(t, i+1, row.Number)
		}
		assert.Equal(t, "003", rows[2].Get("code"))
	})

	t.Run("Empty rows are dropped and numbering stays dense", func(t *testing.T) {
		csv := "code,name\n001,Widget\n,,\n,,\n002,Gadget"
		parser, _ := NewCSVParser(strings.NewReader(csv))
		require.NoError(t, parser.ParseHeader())

		rows, err := parser.ReadAllRows()

		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, 1, rows[0].Number)
		assert.Equal(t, 2, rows[1].Number)
		assert.Equal(t, "002", rows[1].Get("code"))
		assert.Equal(t, 5, rows[1].Line, "physical line still counts skipped rows")
	})

	t.Run("DataRows counts every data row read", func(t *testing.T) {
		csv := "code,name\n001,Widget\n,,\n002,Gadget"
		parser, _ := NewCSVParser(strings.NewReader(csv))
		require.NoError(t, parser.ParseHeader())

		_, err := parser.ReadAllRows()
		require.NoError(t, err)
		assert.Equal(t, 3, parser.DataRows())
	})
}

func TestParseFromBytes(t *testing.T) {
	data := []byte("code,name\n001,Widget")
	parser, err := ParseFromBytes(data)

	require.NoError(t, err)
	require.NoError(t, parser.ParseHeader())

	row, _ := parser.ReadRow()
	assert.Equal(t, "001", row.Get("code"))
}

func TestQuotedFields(t *testing.T) {
	csv := `code,name,description
001,"Widget","A fancy widget"
002,"Gadget","Contains, comma"
003,"Item ""Quoted""","With ""quotes"""
`
	parser, _ := NewCSVParser(strings.NewReader(csv))
	require.NoError(t, parser.ParseHeader())

	row1, _ := parser.ReadRow()
	assert.Equal(t, "Widget", row1.Get("name"))
	assert.Equal(t, "A fancy widget", row1.Get("description"))

	row2, _ := parser.ReadRow()
	assert.Equal(t, "Contains, comma", row2.Get("description"))

	row3, _ := parser.ReadRow()
	assert.Equal(t, `Item "Quoted"`, row3.Get("name"))
	assert.Equal(t, `With "quotes"`, row3.Get("description"))
}

func TestMultilineFields(t *testing.T) {
	csv := "code,name,description\n001,Widget,\"Line 1\nLine 2\nLine 3\""
	parser, _ := NewCSVParser(strings.NewReader(csv))
	require.NoError(t, parser.ParseHeader())

	row, _ := parser.ReadRow()
	assert.Equal(t, "Line 1\nLine 2\nLine 3", row.Get("description"))
}
