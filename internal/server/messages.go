package server

import (
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/samber/lo"
	"github.com/valyala/fastjson"

	"minichat/internal/chat"
	"minichat/internal/storage"
)

// createMessage handles POST requests on "/api/messages" endpoint
func (h *handler) createMessage(w http.ResponseWriter, r *http.Request) {
	const invalid = "Message sending failed due to validation errors"

	body, _ := io.ReadAll(r.Body)

	parser := h.parsers.createMessagePool.Get()
	defer h.parsers.createMessagePool.Put(parser)
	v, _ := parser.ParseBytes(body)

	// retrieving receiver
	receiverValue := v.Get("receiverId")
	if receiverValue == nil || receiverValue.Type() != fastjson.TypeString {
		h.writeError(w, http.StatusBadRequest, invalid)
		return
	}

	receiver, err := uuid.Parse(string(receiverValue.GetStringBytes()))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, invalid)
		return
	}

	// retrieving content
	contentValue := v.Get("content")
	if contentValue == nil || contentValue.Type() != fastjson.TypeString {
		h.writeError(w, http.StatusBadRequest, invalid)
		return
	}

	m, err := h.chat.CreateMessage(r.Context(), caller(r), receiver, string(contentValue.GetStringBytes()))
	if err != nil {
		h.fail(w, r, err, failureMessages{
			http.StatusBadRequest:   invalid,
			http.StatusUnauthorized: "Unauthorized access",
		})
		return
	}

	h.respond(w, http.StatusOK, newMessageResponse("Message sent successfully", m))
}

// editMessage handles PUT requests on "/api/messages/{id}" endpoint
func (h *handler) editMessage(w http.ResponseWriter, r *http.Request) {
	const invalid = "Message editing failed due to validation errors"

	id, err := messageID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, invalid)
		return
	}

	body, _ := io.ReadAll(r.Body)

	parser := h.parsers.editMessagePool.Get()
	defer h.parsers.editMessagePool.Put(parser)
	v, _ := parser.ParseBytes(body)

	contentValue := v.Get("content")
	if contentValue == nil || contentValue.Type() != fastjson.TypeString {
		h.writeError(w, http.StatusBadRequest, invalid)
		return
	}

	m, err := h.chat.EditMessage(r.Context(), caller(r), id, string(contentValue.GetStringBytes()))
	if err != nil {
		h.fail(w, r, err, failureMessages{
			http.StatusBadRequest:   invalid,
			http.StatusUnauthorized: "Unauthorized access",
			http.StatusForbidden:    "You are not authorized to edit this message",
			http.StatusNotFound:     "Message not found",
		})
		return
	}

	h.respond(w, http.StatusOK, newMessageResponse("Message edited successfully", m))
}

// deleteMessage handles DELETE requests on "/api/messages/{id}" endpoint
func (h *handler) deleteMessage(w http.ResponseWriter, r *http.Request) {
	id, err := messageID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid message id")
		return
	}

	if err := h.chat.DeleteMessage(r.Context(), caller(r), id); err != nil {
		h.fail(w, r, err, failureMessages{
			http.StatusUnauthorized: "Unauthorized access",
			http.StatusForbidden:    "You are not authorized to delete this message",
			http.StatusNotFound:     "Message not found",
		})
		return
	}

	h.respond(w, http.StatusOK, statusResponse{Message: "Message deleted successfully"})
}

// conversation handles GET requests on "/api/messages" endpoint
func (h *handler) conversation(w http.ResponseWriter, r *http.Request) {
	const invalid = "Invalid request parameters"

	query := r.URL.Query()

	peer, err := uuid.Parse(query.Get("userId"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, invalid)
		return
	}

	before, err := parseTime(query.Get("before"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, invalid)
		return
	}

	count := chat.DefaultHistoryCount
	if raw := query.Get("count"); raw != "" {
		if count, err = strconv.Atoi(raw); err != nil {
			h.writeError(w, http.StatusBadRequest, invalid)
			return
		}
	}

	sort := chat.SortAsc
	if raw := query.Get("sort"); raw != "" {
		sort = chat.SortOrder(raw)
	}

	messages, err := h.chat.RetrieveConversation(r.Context(), caller(r), chat.HistoryQuery{
		Peer:   peer,
		Before: before,
		Count:  count,
		Sort:   sort,
	})
	if err != nil {
		h.fail(w, r, err, failureMessages{
			http.StatusBadRequest:   invalid,
			http.StatusUnauthorized: "Unauthorized access",
			http.StatusNotFound:     "User not found",
		})
		return
	}

	h.respond(w, http.StatusOK, historyResponse{
		Messages: lo.Map(messages, func(m storage.Message, _ int) messageView { return newMessageView(m) }),
	})
}

func messageID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

func newMessageView(m storage.Message) messageView {
	return messageView{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Content:    m.Content,
		Timestamp:  m.Timestamp,
	}
}

func newMessageResponse(msg string, m storage.Message) messageResponse {
	return messageResponse{
		Message:    msg,
		MessageID:  m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Content:    m.Content,
		Timestamp:  m.Timestamp,
	}
}
