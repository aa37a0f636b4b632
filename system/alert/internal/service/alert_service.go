package service

import (
	"context"
	"math"
	"time"

	"pipelinehealth/pkg/clock"
	errorc "pipelinehealth/pkg/core/err"
	"pipelinehealth/pkg/core/logger"
	"pipelinehealth/pkg/core/mvc"
	"pipelinehealth/pkg/notifier"
	"pipelinehealth/system/alert/api/dto"
	"pipelinehealth/system/alert/internal/dao"
	"pipelinehealth/system/alert/internal/model"
	reqdto "pipelinehealth/system/alert/internal/model/dto"

	"gorm.io/gorm"
)

const (
	detailHistorySize  = 10
	defaultHistoryPage = 20
	statisticsWindow   = 24 * time.Hour
)

// AlertService 告警规则管理与统计
type AlertService struct {
	mvc.IBaseService[model.Alert]
	db       *gorm.DB
	alerts   *dao.AlertDao
	history  *dao.HistoryDao
	source   PipelineSource
	notifier Notifier
	clock    clock.Clock
	log      *logger.Log
	err      *errorc.ErrorBuilder
}

func NewAlertService(db *gorm.DB, alerts *dao.AlertDao, history *dao.HistoryDao, source PipelineSource, n Notifier, clk clock.Clock, log *logger.Log) *AlertService {
	return &AlertService{
		IBaseService: mvc.NewBaseService[model.Alert](alerts.IBaseDao),
		db:           db,
		alerts:       alerts,
		history:      history,
		source:       source,
		notifier:     n,
		clock:        clk,
		log:          log.WithEntryName("AlertService"),
		err:          errorc.NewErrorBuilder("AlertService"),
	}
}

func (s *AlertService) List(ctx context.Context, req *reqdto.ListAlertReq) ([]dto.AlertDTO, error) {
	alerts, err := s.alerts.FindList(ctx, dao.AlertFilter{PipelineID: req.PipelineID, IsActive: req.IsActive})
	if err != nil {
		return nil, err
	}
	names, err := s.pipelineNames(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]dto.AlertDTO, 0, len(alerts))
	for _, a := range alerts {
		item := a.ToDTO()
		if a.PipelineID != nil {
			item.PipelineName = names[*a.PipelineID]
		}
		out = append(out, item)
	}
	return out, nil
}

// Detail 附带最近 10 条历史
func (s *AlertService) Detail(ctx context.Context, id int64) (*dto.AlertDetail, error) {
	alert, err := s.alerts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	rows, err := s.history.FindRecent(ctx, id, detailHistorySize)
	if err != nil {
		return nil, err
	}

	detail := &dto.AlertDetail{AlertDTO: alert.ToDTO(), History: make([]dto.HistoryDTO, 0, len(rows))}
	if alert.PipelineID != nil {
		if p, err := s.source.GetPipeline(ctx, *alert.PipelineID); err == nil && p != nil {
			detail.PipelineName = p.Name
		}
	}
	for _, h := range rows {
		detail.History = append(detail.History, h.ToDTO())
	}
	return detail, nil
}

func (s *AlertService) CreateAlert(ctx context.Context, req *reqdto.SaveAlertReq, createdBy int64) (*dto.AlertDTO, error) {
	if err := s.checkPipeline(ctx, req.PipelineID); err != nil {
		return nil, err
	}

	alert := &model.Alert{CreatedBy: createdBy, IsActive: true}
	apply(alert, req)
	if err := s.alerts.Create(ctx, alert); err != nil {
		return nil, s.err.New("创建告警失败", err).DB()
	}

	s.log.WithAlertID(alert.ID).WithField("condition", alert.ConditionType).Info("告警已创建")
	out := alert.ToDTO()
	return &out, nil
}

// UpdateAlert 整体替换规则内容，未提供 isActive 时保持原状态
func (s *AlertService) UpdateAlert(ctx context.Context, id int64, req *reqdto.SaveAlertReq) (*dto.AlertDTO, error) {
	alert, err := s.alerts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkPipeline(ctx, req.PipelineID); err != nil {
		return nil, err
	}

	apply(alert, req)
	if err := s.alerts.Save(ctx, alert); err != nil {
		return nil, err
	}
	out := alert.ToDTO()
	return &out, nil
}

// DeleteAlert 同时删除该告警的全部历史
func (s *AlertService) DeleteAlert(ctx context.Context, id int64) error {
	if _, err := s.alerts.FindByID(ctx, id); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.history.WithTx(tx).DeleteByAlerts(ctx, []int64{id}); err != nil {
			return err
		}
		return s.alerts.WithTx(tx).DeleteByIDs(ctx, []int64{id})
	})
	if err != nil {
		return err
	}
	s.log.WithAlertID(id).Info("告警已删除")
	return nil
}

// Toggle 切换启用状态，返回切换后的规则
func (s *AlertService) Toggle(ctx context.Context, id int64) (*dto.AlertDTO, error) {
	alert, err := s.alerts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	alert.IsActive = !alert.IsActive
	if err := s.alerts.SetActive(ctx, id, alert.IsActive); err != nil {
		return nil, err
	}
	out := alert.ToDTO()
	return &out, nil
}

func (s *AlertService) History(ctx context.Context, id int64, req *reqdto.HistoryReq) ([]dto.HistoryDTO, int64, error) {
	if _, err := s.alerts.FindByID(ctx, id); err != nil {
		return nil, 0, err
	}

	size := req.Limit
	if size <= 0 {
		size = defaultHistoryPage
	}
	rows, total, err := s.history.FindPage(ctx, id, mvc.NewPage(req.Page, size, nil))
	if err != nil {
		return nil, 0, err
	}

	out := make([]dto.HistoryDTO, 0, len(rows))
	for _, h := range rows {
		out = append(out, h.ToDTO())
	}
	return out, total, nil
}

// Statistics 最近 24 小时的触发统计
func (s *AlertService) Statistics(ctx context.Context) (*dto.Statistics, error) {
	rows, err := s.history.FindSince(ctx, s.clock.Now().Add(-statisticsWindow))
	if err != nil {
		return nil, err
	}
	total, err := s.alerts.Count(ctx, false)
	if err != nil {
		return nil, err
	}
	active, err := s.alerts.Count(ctx, true)
	if err != nil {
		return nil, err
	}

	stats := &dto.Statistics{
		TotalAlerts:      total,
		ActiveAlertCount: active,
		AlertCounts: dto.AlertCounts{
			Total:      int64(len(rows)),
			BySeverity: make(map[notifier.Severity]int64),
		},
		Period: "24h",
	}
	for _, h := range rows {
		stats.AlertCounts.BySeverity[h.Severity]++
		if h.Status == dto.NotificationSent {
			stats.Sent++
		} else {
			stats.Failed++
		}
	}
	if len(rows) > 0 {
		stats.AlertSuccessRate = math.Round(float64(stats.Sent)/float64(len(rows))*10000) / 100
	}
	return stats, nil
}

// TestNotification 向给定渠道发送一条 INFO 级别的测试通知
func (s *AlertService) TestNotification(ctx context.Context, channels notifier.Channels) notifier.Result {
	return s.notifier.Test(ctx, channels)
}

// Cleanup 删除早于 cutoff 的告警历史
func (s *AlertService) Cleanup(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := s.history.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.log.WithField("deleted", n).WithField("cutoff", cutoff).Info("告警历史清理完成")
	return n, nil
}

// DeleteByPipeline 流水线删除时在同一事务内清理其告警与历史
func (s *AlertService) DeleteByPipeline(ctx context.Context, tx *gorm.DB, pipelineID int64) error {
	alerts := s.alerts.WithTx(tx)
	ids, err := alerts.IDsByPipeline(ctx, pipelineID)
	if err != nil {
		return err
	}
	if err := s.history.WithTx(tx).DeleteByAlerts(ctx, ids); err != nil {
		return err
	}
	return alerts.DeleteByIDs(ctx, ids)
}

func (s *AlertService) checkPipeline(ctx context.Context, pipelineID *int64) error {
	if pipelineID == nil {
		return nil
	}
	if _, err := s.source.GetPipeline(ctx, *pipelineID); err != nil {
		if errorc.IsNotFound(err) {
			return s.err.NotFound("Pipeline not found")
		}
		return err
	}
	return nil
}

func (s *AlertService) pipelineNames(ctx context.Context) (map[int64]string, error) {
	pipelines, err := s.source.ListPipelines(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(pipelines))
	for _, p := range pipelines {
		names[p.ID] = p.Name
	}
	return names, nil
}

func apply(alert *model.Alert, req *reqdto.SaveAlertReq) {
	alert.Name = req.Name
	alert.ConditionType = req.ConditionType
	alert.Threshold = *req.Threshold
	alert.Channels = *req.Channels
	alert.PipelineID = req.PipelineID
	if req.IsActive != nil {
		alert.IsActive = *req.IsActive
	}
}
