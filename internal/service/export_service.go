package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"projet-5iw/backend/internal/repository"
)

// ── 导出模块业务错误 ──

var ErrExportGenerateFail = errors.New("生成 Excel 文件失败")

// templateStaffHeader 模板第一列表头
const templateStaffHeader = "Personnel"

// ExportService 导出业务接口
//
// 设计说明：
//   - 导出空白周模板 (.xlsx)，供管理员填写后再导入
//   - 每个工作日一个 Sheet（Lundi..Vendredi），列为配置的时段，行为参与排课的员工
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportTemplate 生成空白周模板
	ExportTemplate(ctx context.Context) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo     *repository.Repository
	settings *PlanningSettings
	logger   *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, settings *PlanningSettings, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, settings: settings, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportTemplate 生成空白周模板
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportTemplate(ctx context.Context) (*bytes.Buffer, string, error) {
	staff, err := s.repo.Staff.ListScheduled(ctx)
	if err != nil {
		s.logger.Error("查询员工名册失败", zap.Error(err))
		return nil, "", err
	}
	names := make([]string, 0, len(staff))
	for _, st := range staff {
		names = append(names, strings.TrimSpace(st.FirstName+" "+st.LastName))
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	for day := Monday; day <= Friday; day++ {
		sheet := DayName(day)
		if _, err := f.NewSheet(sheet); err != nil {
			s.logger.Error("创建工作表失败", zap.String("sheet", sheet), zap.Error(err))
			return nil, "", ErrExportGenerateFail
		}

		header := []interface{}{templateStaffHeader}
		for _, slot := range s.settings.Slots.ForDay(day) {
			header = append(header, slot.String())
		}
		if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
			return nil, "", ErrExportGenerateFail
		}
		last := cell(colName(len(header)-1), 1)
		f.SetCellStyle(sheet, "A1", last, headerStyle)
		f.SetColWidth(sheet, "A", "A", 24)
		f.SetColWidth(sheet, "B", colName(len(header)-1), 32)

		for i, name := range names {
			f.SetCellValue(sheet, cell("A", i+2), name)
		}
	}
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")
	if idx, err := f.GetSheetIndex(DayName(Monday)); err == nil {
		f.SetActiveSheet(idx)
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	return buf, "modele_planning.xlsx", nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
