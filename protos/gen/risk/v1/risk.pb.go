// Code generated by protoc-gen-go. DO NOT EDIT.
// versions:
// 	protoc-gen-go v1.36.10
// 	protoc        (unknown)
// source: risk/v1/risk.proto

package riskv1

import (
	protoreflect "google.golang.org/protobuf/reflect/protoreflect"
	protoimpl "google.golang.org/protobuf/runtime/protoimpl"
	reflect "reflect"
	sync "sync"
	unsafe "unsafe"
)

const (
	// Verify that this generated code is sufficiently up-to-date.
	_ = protoimpl.EnforceVersion(20 - protoimpl.MinVersion)
	// Verify that runtime/protoimpl is sufficiently up-to-date.
	_ = protoimpl.EnforceVersion(protoimpl.MaxVersion - 20)
)

type RiskScoreRequest struct {
	state         protoimpl.MessageState `protogen:"open.v1"`
	CustomerId    string                 `protobuf:"bytes,1,opt,name=customer_id,json=customerId,proto3" json:"customer_id,omitempty"`
	unknownFields protoimpl.UnknownFields
	sizeCache     protoimpl.SizeCache
}

func (x *RiskScoreRequest) Reset() {
	*x = RiskScoreRequest{}
	mi := &file_risk_v1_risk_proto_msgTypes[0]
	ms := protoimpl.X.MessageStateOf(protoimpl.Pointer(x))
	ms.StoreMessageInfo(mi)
}

func (x *RiskScoreRequest) String() string {
	return protoimpl.X.MessageStringOf(x)
}

func (*RiskScoreRequest) ProtoMessage() {}

func (x *RiskScoreRequest) ProtoReflect() protoreflect.Message {
	mi := &file_risk_v1_risk_proto_msgTypes[0]
	if x != nil {
		ms := protoimpl.X.MessageStateOf(protoimpl.Pointer(x))
		if ms.LoadMessageInfo() == nil {
			ms.StoreMessageInfo(mi)
		}
		return ms
	}
	return mi.MessageOf(x)
}

// Deprecated: Use RiskScoreRequest.ProtoReflect.Descriptor instead.
func (*RiskScoreRequest) Descriptor() ([]byte, []int) {
	return file_risk_v1_risk_proto_rawDescGZIP(), []int{0}
}

func (x *RiskScoreRequest) GetCustomerId() string {
	if x != nil {
		return x.CustomerId
	}
	return ""
}

type RiskScoreResponse struct {
	state          protoimpl.MessageState `protogen:"open.v1"`
	CustomerId     string                 `protobuf:"bytes,1,opt,name=customer_id,json=customerId,proto3" json:"customer_id,omitempty"`
	ProfileId      string                 `protobuf:"bytes,2,opt,name=profile_id,json=profileId,proto3" json:"profile_id,omitempty"`
	Score          int32                  `protobuf:"varint,3,opt,name=score,proto3" json:"score,omitempty"`
	FiledClaims    int32                  `protobuf:"varint,4,opt,name=filed_claims,json=filedClaims,proto3" json:"filed_claims,omitempty"`
	ApprovedClaims int32                  `protobuf:"varint,5,opt,name=approved_claims,json=approvedClaims,proto3" json:"approved_claims,omitempty"`
	Lapses         int32                  `protobuf:"varint,6,opt,name=lapses,proto3" json:"lapses,omitempty"`
	unknownFields  protoimpl.UnknownFields
	sizeCache      protoimpl.SizeCache
}

func (x *RiskScoreResponse) Reset() {
	*x = RiskScoreResponse{}
	mi := &file_risk_v1_risk_proto_msgTypes[1]
	ms := protoimpl.X.MessageStateOf(protoimpl.Pointer(x))
	ms.StoreMessageInfo(mi)
}

func (x *RiskScoreResponse) String() string {
	return protoimpl.X.MessageStringOf(x)
}

func (*RiskScoreResponse) ProtoMessage() {}

func (x *RiskScoreResponse) ProtoReflect() protoreflect.Message {
	mi := &file_risk_v1_risk_proto_msgTypes[1]
	if x != nil {
		ms := protoimpl.X.MessageStateOf(protoimpl.Pointer(x))
		if ms.LoadMessageInfo() == nil {
			ms.StoreMessageInfo(mi)
		}
		return ms
	}
	return mi.MessageOf(x)
}

// Deprecated: Use RiskScoreResponse.ProtoReflect.Descriptor instead.
func (*RiskScoreResponse) Descriptor() ([]byte, []int) {
	return file_risk_v1_risk_proto_rawDescGZIP(), []int{1}
}

func (x *RiskScoreResponse) GetCustomerId() string {
	if x != nil {
		return x.CustomerId
	}
	return ""
}

func (x *RiskScoreResponse) GetProfileId() string {
	if x != nil {
		return x.ProfileId
	}
	return ""
}

func (x *RiskScoreResponse) GetScore() int32 {
	if x != nil {
		return x.Score
	}
	return 0
}

func (x *RiskScoreResponse) GetFiledClaims() int32 {
	if x != nil {
		return x.FiledClaims
	}
	return 0
}

func (x *RiskScoreResponse) GetApprovedClaims() int32 {
	if x != nil {
		return x.ApprovedClaims
	}
	return 0
}

func (x *RiskScoreResponse) GetLapses() int32 {
	if x != nil {
		return x.Lapses
	}
	return 0
}

var File_risk_v1_risk_proto protoreflect.FileDescriptor

const file_risk_v1_risk_proto_rawDesc = "" +
	"\n" +
	"\x12risk/v1/risk.proto\x12\arisk.v1\"3\n" +
	"\x10RiskScoreRequest\x12\x1f\n" +
	"\vcustomer_id\x18\x01 \x01(\tR\n" +
	"customerId\"\xcd\x01\n" +
	"\x11RiskScoreResponse\x12\x1f\n" +
	"\vcustomer_id\x18\x01 \x01(\tR\n" +
	"customerId\x12\x1d\n" +
	"\n" +
	"profile_id\x18\x02 \x01(\tR\tprofileId\x12\x14\n" +
	"\x05score\x18\x03 \x01(\x05R\x05score\x12!\n" +
	"\ffiled_claims\x18\x04 \x01(\x05R\vfiledClaims\x12'\n" +
	"\x0fapproved_claims\x18\x05 \x01(\x05R\x0eapprovedClaims\x12\x16\n" +
	"\x06lapses\x18\x06 \x01(\x05R\x06lapses2T\n" +
	"\vRiskService\x12E\n" +
	"\fGetRiskScore\x12\x19.risk.v1.RiskScoreRequest\x1a\x1a.risk.v1.RiskScoreResponseB:Z8github.com/covergrid/covergrid/protos/gen/risk/v1;riskv1b\x06proto3"

var (
	file_risk_v1_risk_proto_rawDescOnce sync.Once
	file_risk_v1_risk_proto_rawDescData []byte
)

func file_risk_v1_risk_proto_rawDescGZIP() []byte {
	file_risk_v1_risk_proto_rawDescOnce.Do(func() {
		file_risk_v1_risk_proto_rawDescData = protoimpl.X.CompressGZIP(unsafe.Slice(unsafe.StringData(file_risk_v1_risk_proto_rawDesc), len(file_risk_v1_risk_proto_rawDesc)))
	})
	return file_risk_v1_risk_proto_rawDescData
}

var file_risk_v1_risk_proto_msgTypes = make([]protoimpl.MessageInfo, 2)
var file_risk_v1_risk_proto_goTypes = []any{
	(*RiskScoreRequest)(nil),  // 0: risk.v1.RiskScoreRequest
	(*RiskScoreResponse)(nil), // 1: risk.v1.RiskScoreResponse
}
var file_risk_v1_risk_proto_depIdxs = []int32{
	0, // 0: risk.v1.RiskService.GetRiskScore:input_type -> risk.v1.RiskScoreRequest
	1, // 1: risk.v1.RiskService.GetRiskScore:output_type -> risk.v1.RiskScoreResponse
	1, // [1:2] is the sub-list for method output_type
	0, // [0:1] is the sub-list for method input_type
	0, // [0:0] is the sub-list for extension type_name
	0, // [0:0] is the sub-list for extension extendee
	0, // [0:0] is the sub-list for field type_name
}

func init() { file_risk_v1_risk_proto_init() }
func file_risk_v1_risk_proto_init() {
	if File_risk_v1_risk_proto != nil {
		return
	}
	type x struct{}
	out := protoimpl.TypeBuilder{
		File: protoimpl.DescBuilder{
			GoPackagePath: reflect.TypeOf(x{}).PkgPath(),
			RawDescriptor: unsafe.Slice(unsafe.StringData(file_risk_v1_risk_proto_rawDesc), len(file_risk_v1_risk_proto_rawDesc)),
			NumEnums:      0,
			NumMessages:   2,
			NumExtensions: 0,
			NumServices:   1,
		},
		GoTypes:           file_risk_v1_risk_proto_goTypes,
		DependencyIndexes: file_risk_v1_risk_proto_depIdxs,
		MessageInfos:      file_risk_v1_risk_proto_msgTypes,
	}.Build()
	File_risk_v1_risk_proto = out.File
	file_risk_v1_risk_proto_goTypes = nil
	file_risk_v1_risk_proto_depIdxs = nil
}
