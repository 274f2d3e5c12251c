package service

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	pkgerrors "projet-5iw/backend/pkg/errors"
)

var ErrWorkbookUnreadable = pkgerrors.New(pkgerrors.ErrInvalidArgument, "无法读取工作簿，请上传 .xlsx 文件")

// ParseWorkbook 读取上传的工作簿：每个工作日一个工作表，
// 第 0 行为表头，第 0 列为员工姓名，其后各列依次为时段。
// 无法识别的工作表忽略。
func ParseWorkbook(r io.Reader) (*TemplateGrid, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWorkbookUnreadable, err)
	}
	defer f.Close()

	grid := &TemplateGrid{Days: make(map[int][]TemplateRow)}
	for _, sheet := range f.GetSheetList() {
		day, ok := weekdaySheets[NormalizeName(sheet)]
		if !ok {
			continue
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("%w: 工作表 %s: %v", ErrWorkbookUnreadable, sheet, err)
		}

		parsed := make([]TemplateRow, 0, len(rows))
		for i, row := range rows {
			if i == 0 || len(row) == 0 {
				continue
			}
			name := strings.TrimSpace(row[0])
			cells := make([]string, len(row)-1)
			for j, cell := range row[1:] {
				cells[j] = strings.TrimSpace(cell)
			}
			if name == "" && isBlank(cells) {
				continue
			}
			parsed = append(parsed, TemplateRow{Line: i + 1, Name: name, Cells: cells})
		}
		grid.Days[day] = append(grid.Days[day], parsed...)
	}
	return grid, nil
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
