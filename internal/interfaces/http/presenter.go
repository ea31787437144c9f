package http

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-control-api/internal/application/dto"
	"github.com/jhoicas/stock-control-api/internal/application/inventory"
	"github.com/jhoicas/stock-control-api/internal/domain/entity"
)

// present convierte los resultados del motor y del change feed en DTOs JSON.
func present(data any) any {
	switch v := data.(type) {
	case *entity.Transfer:
		return transferResponse(v, nil)
	case *inventory.TransferView:
		return transferResponse(v.Transfer, &v.TotalValue)
	case []*inventory.TransferView:
		out := make([]dto.TransferResponse, 0, len(v))
		for _, t := range v {
			out = append(out, transferResponse(t.Transfer, &t.TotalValue))
		}
		return out
	case []*entity.Transfer:
		out := make([]dto.TransferResponse, 0, len(v))
		for _, t := range v {
			out = append(out, transferResponse(t, nil))
		}
		return out
	case *entity.ProductionBatch:
		return batchResponse(v)
	case []*entity.ProductionBatch:
		out := make([]dto.ProductionBatchResponse, 0, len(v))
		for _, b := range v {
			out = append(out, batchResponse(b))
		}
		return out
	case *inventory.BatchEvaluation:
		return evaluationResponse(v)
	case *entity.WasteLog:
		return wasteResponse(v)
	case []*entity.WasteLog:
		out := make([]dto.WasteLogResponse, 0, len(v))
		for _, l := range v {
			out = append(out, wasteResponse(l))
		}
		return out
	case []*entity.StockRecord:
		out := make([]dto.StockRecordResponse, 0, len(v))
		for _, r := range v {
			out = append(out, dto.StockRecordResponse{Scope: string(r.Scope), EntityID: r.EntityID, Quantity: r.Quantity, UpdatedAt: r.UpdatedAt})
		}
		return out
	case *inventory.SalesRunInventory:
		return salesRunResponse(v)
	}
	return data
}

func transferResponse(t *entity.Transfer, total *decimal.Decimal) dto.TransferResponse {
	return dto.TransferResponse{
		ID:               t.ID,
		RequestID:        t.RequestID,
		FromStaffID:      t.FromStaffID,
		FromStaffName:    t.FromStaffName,
		ToStaffID:        t.ToStaffID,
		ToStaffName:      t.ToStaffName,
		SourceScope:      string(t.SourceScope),
		DestinationScope: string(t.DestinationScope),
		Items:            itemResponses(t.Items),
		ReturnedItems:    itemResponses(t.ReturnedItems),
		IsSalesRun:       t.IsSalesRun,
		Notes:            t.Notes,
		Status:           t.Status,
		TotalValue:       total,
		DateInitiated:    t.DateInitiated,
		TimeReceived:     t.TimeReceived,
		TimeCompleted:    t.TimeCompleted,
	}
}

func itemResponses(items []entity.TransferItem) []dto.ItemResponse {
	if items == nil {
		return nil
	}
	out := make([]dto.ItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, dto.ItemResponse{ProductID: it.ProductID, ProductName: it.ProductName, Quantity: it.Quantity})
	}
	return out
}

func batchResponse(b *entity.ProductionBatch) dto.ProductionBatchResponse {
	ings := make([]dto.IngredientResponse, 0, len(b.Ingredients))
	for _, in := range b.Ingredients {
		ings = append(ings, dto.IngredientResponse{IngredientID: in.IngredientID, IngredientName: in.IngredientName, Quantity: in.Quantity, Unit: in.Unit})
	}
	return dto.ProductionBatchResponse{
		ID:                 b.ID,
		RecipeName:         b.RecipeName,
		Ingredients:        ings,
		RequestedByStaffID: b.RequestedByStaffID,
		RequestedByName:    b.RequestedByName,
		Status:             b.Status,
		CreatedAt:          b.CreatedAt,
		ApprovedBy:         b.ApprovedBy,
		ApprovedAt:         b.ApprovedAt,
		DeclinedBy:         b.DeclinedBy,
		DeclinedAt:         b.DeclinedAt,
		CompletedAt:        b.CompletedAt,
	}
}

func evaluationResponse(e *inventory.BatchEvaluation) dto.BatchEvaluationResponse {
	lines := make([]dto.IngredientAvailabilityResponse, 0, len(e.Lines))
	for _, l := range e.Lines {
		lines = append(lines, dto.IngredientAvailabilityResponse{
			IngredientID:   l.IngredientID,
			IngredientName: l.IngredientName,
			Unit:           l.Unit,
			Required:       l.Required,
			Available:      l.Available,
			Sufficient:     l.Sufficient,
		})
	}
	return dto.BatchEvaluationResponse{BatchID: e.BatchID, Status: e.Status, Lines: lines, CanApprove: e.CanApprove}
}

func wasteResponse(l *entity.WasteLog) dto.WasteLogResponse {
	items := make([]dto.ItemResponse, 0, len(l.Items))
	for _, it := range l.Items {
		items = append(items, dto.ItemResponse{ProductID: it.ProductID, ProductName: it.ProductName, Quantity: it.Quantity})
	}
	return dto.WasteLogResponse{
		ID:        l.ID,
		RequestID: l.RequestID,
		StaffID:   l.StaffID,
		StaffName: l.StaffName,
		Scope:     string(l.Scope),
		Items:     items,
		Reason:    l.Reason,
		Notes:     l.Notes,
		Date:      l.Date,
	}
}

func salesRunResponse(s *inventory.SalesRunInventory) dto.SalesRunInventoryResponse {
	items := make([]dto.SalesRunItemResponse, 0, len(s.Items))
	for _, it := range s.Items {
		items = append(items, dto.SalesRunItemResponse{ProductID: it.ProductID, ProductName: it.ProductName, Transferred: it.Transferred, OnHand: it.OnHand})
	}
	return dto.SalesRunInventoryResponse{TransferID: s.TransferID, StaffID: s.StaffID, StaffName: s.StaffName, Status: s.Status, Items: items}
}

// ── Requests → entradas del motor ─────────────────────────────────────────────

func transferItems(in []dto.ItemRequest) []entity.TransferItem {
	out := make([]entity.TransferItem, 0, len(in))
	for _, it := range in {
		out = append(out, entity.TransferItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return out
}

func wasteItems(in []dto.ItemRequest) []entity.WasteItem {
	out := make([]entity.WasteItem, 0, len(in))
	for _, it := range in {
		out = append(out, entity.WasteItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return out
}

func batchIngredients(in []dto.IngredientRequest) []entity.BatchIngredient {
	out := make([]entity.BatchIngredient, 0, len(in))
	for _, it := range in {
		out = append(out, entity.BatchIngredient{IngredientID: it.IngredientID, IngredientName: it.IngredientName, Quantity: it.Quantity, Unit: it.Unit})
	}
	return out
}
