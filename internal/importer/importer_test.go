// file: internal/importer/importer_test.go
// version: 1.0.0
// guid: ee00d093-578b-4345-bcb7-474e18a8ef2b

package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdfalk/libshelf/internal/events"
	"github.com/jdfalk/libshelf/internal/models"
)

const productPage = `<!DOCTYPE html>
<html>
<head>
  <meta property="og:title" content="데미안 - 알라딘">
  <meta property="og:image" content="https://image.example.com/product/cover500/demian.jpg">
  <meta property="og:description" content="헤르만 헤세의 성장 소설">
</head>
<body>
  <div class="Ere_prod_side_list"><ul>
    <li><a href="/shop/wbrowse.aspx?CID=50993">국내도서 &gt; 소설/시/희곡 &gt; 독일소설</a></li>
  </ul></div>
  <li class="Ere_sub2_title">
    <a href="/Search/wSearchResult.aspx?AuthorSearch=헤르만+헤세">헤르만 헤세</a> (지은이),
    <a class="Ere_sub2_title" href="/search/wsearchresult.aspx?PublisherSearch=민음사">민음사</a>
  </li>
</body>
</html>`

func TestExtractPage(t *testing.T) {
	page, err := ExtractPage(strings.NewReader(productPage))
	require.NoError(t, err)

	assert.Equal(t, "데미안", page.Title)
	assert.Equal(t, "https://image.example.com/product/cover500/demian.jpg", page.Image)
	assert.Equal(t, "헤르만 헤세", page.Author)
	assert.Equal(t, "민음사", page.Publisher)
	assert.Equal(t, "국내도서 > 소설/시/희곡 > 독일소설", page.CategoryLabel)
	assert.Equal(t, 7, page.Category)
	assert.Equal(t, []string{"title", "author", "publisher", "image", "category"}, page.Fields())

	nb := page.NewBook()
	assert.Equal(t, "데미안", nb.Title)
	assert.Equal(t, 7, nb.Category)
	assert.NoError(t, nb.Validate())
}

func TestExtractPageFallbacks(t *testing.T) {
	doc := `<html><head><meta property="og:description" content="요리 레시피"></head><body>
		<h1 class="bo_title">  집밥  백선생 </h1>
		<div class="cover_box"><img src="/img/cover.png"></div>
		<div class="bo_author"><a href="#">백종원(저)</a></div>
	</body></html>`

	page, err := ExtractPage(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, "집밥 백선생", page.Title)
	assert.Equal(t, "/img/cover.png", page.Image)
	assert.Equal(t, "백종원", page.Author)
	assert.Empty(t, page.Publisher)
	assert.Equal(t, "요리 레시피", page.CategoryLabel)
	assert.Equal(t, 4, page.Category)
}

func TestExtractPageNothingFound(t *testing.T) {
	_, err := ExtractPage(strings.NewReader(`<html><body><p>blocked</p></body></html>`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrImportFailed))
}

var testTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type fakeAdder struct {
	added []models.NewBook
	fail  error
}

func (f *fakeAdder) Add(_ context.Context, nb models.NewBook) (*models.Book, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	if err := nb.Validate(); err != nil {
		return nil, err
	}
	f.added = append(f.added, nb)
	b := nb.Materialize(fmt.Sprintf("b%d", len(f.added)), testTime)
	return &b, nil
}

func TestParseCSV(t *testing.T) {
	input := "\ufeffTitle,Author,publisher,category,rating,pages,reading_status,summary\n" +
		"데미안,헤르만 헤세,민음사,7,5,248,completed,성장 소설\n" +
		"코스모스,칼 세이건,사이언스북스,자연과학,4,,reading,\n" +
		",무명,,,,,,\n" +
		"요리책,백종원,,요리 레시피,,,,\n" +
		"나쁜 평점,누군가,,,9,,,\n" +
		"쪽수,누군가,,,,many,,\n"

	rows, skipped, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, 7, rows[0].Book.Category)
	assert.Equal(t, 5, rows[0].Book.Rating)
	assert.Equal(t, 248, rows[0].Book.Pages)
	assert.Equal(t, models.StatusCompleted, rows[0].Book.ReadingStatus)
	assert.Equal(t, 3, rows[1].Book.Category)
	assert.Equal(t, models.StatusReading, rows[1].Book.ReadingStatus)
	assert.Equal(t, 4, rows[2].Book.Category)

	require.Len(t, skipped, 3)
	assert.Equal(t, 4, skipped[0].Line)
	assert.Equal(t, 6, skipped[1].Line)
	assert.Contains(t, skipped[1].Reason, "rating")
	assert.Equal(t, 7, skipped[2].Line)
	assert.Contains(t, skipped[2].Reason, "pages")
}

func TestParseCSVHeaderErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"no author column", "title,publisher\n데미안,민음사\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseCSV(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, ErrImportFailed)
		})
	}
}

func TestImportCSV(t *testing.T) {
	input := "title,author,category\n데미안,헤르만 헤세,판타지 소설\n,빈 제목,\n코스모스,칼 세이건,3\n"
	hub := events.NewHub()
	var got *events.Event
	hub.Subscribe(func(e *events.Event) { got = e }, events.BooksImported)

	adder := &fakeAdder{}
	result, err := ImportCSV(context.Background(), adder, strings.NewReader(input), CSVOptions{Hub: hub, LibraryID: "lib"})
	require.NoError(t, err)

	require.Len(t, result.Imported, 2)
	assert.Equal(t, 7, result.Imported[0].Category)
	assert.Equal(t, 0, result.Imported[0].Likes)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, 3, result.Skipped[0].Line)

	require.NotNil(t, got)
	assert.Equal(t, "lib", got.LibraryID)
	assert.Equal(t, 2, got.Data["imported"])
}

func TestImportCSVStoreFailure(t *testing.T) {
	adder := &fakeAdder{fail: errors.New("disk full")}
	result, err := ImportCSV(context.Background(), adder, strings.NewReader("title,author\n데미안,헤르만 헤세\n"), CSVOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
	assert.Empty(t, result.Imported)
}
